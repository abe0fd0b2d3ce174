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
	"log"
	"os"

	"github.com/spf13/cobra"

	mintline "github.com/mintlinehq/mintline"
	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/store"
)

type mintlineInstance struct {
	mint *mintline.Mintline
	cnf  *config.Configuration
}

// newInstance connects the datasource, the ledger node and Redis. Only the
// commands that actually orchestrate call this; migrate works off bare
// configuration.
func newInstance() (*mintlineInstance, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	db, err := store.NewDataSource(cnf)
	if err != nil {
		return nil, err
	}
	client, err := ledger.NewRPCClient()
	if err != nil {
		return nil, err
	}
	mint, err := mintline.NewMintline(db, client)
	if err != nil {
		return nil, err
	}
	return &mintlineInstance{mint: mint, cnf: cnf}, nil
}

func preRun(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	return config.InitConfig(configFile)
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "mintline",
		Short:             "mintline issues assets and runs NFT lifecycles on a ledger network",
		PersistentPreRunE: preRun,
	}
	rootCmd.PersistentFlags().String("config", "mintline.json", "Configuration file path")

	rootCmd.AddCommand(serverCommands())
	rootCmd.AddCommand(workerCommands())
	rootCmd.AddCommand(migrateCommands())

	return rootCmd
}

func main() {
	if err := NewCLI().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
