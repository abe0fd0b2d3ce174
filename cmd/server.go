/*
Copyright 2024 Mintline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mintlinehq/mintline/api"
	"github.com/mintlinehq/mintline/ledger"
)

func serveAPI(instance *mintlineInstance) error {
	// fail early when the node is unreachable rather than on first request
	client, err := ledger.NewRPCClient()
	if err != nil {
		return err
	}
	if err := client.Connect(context.Background()); err != nil {
		logrus.Warnf("ledger node not reachable at startup: %v", err)
	}

	if err := instance.mint.PersistAccounts(context.Background()); err != nil {
		logrus.Warnf("could not persist managed accounts: %v", err)
	}

	router := api.NewAPI(instance.mint).Router()
	addr := fmt.Sprintf(":%s", instance.cnf.Server.Port)
	log.Printf("Starting mintline server on %s", addr)
	return router.Run(addr)
}

func serverCommands() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the mintline HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := newInstance()
			if err != nil {
				return err
			}
			return serveAPI(instance)
		},
	}
}
