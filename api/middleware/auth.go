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

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
)

const authHeader = "X-Mintline-Key"

// SecretKeyAuthMiddleware rejects requests without the configured secret key
// when secure mode is on. With secure mode off it passes everything through.
func SecretKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := config.Fetch()
		if err != nil {
			logrus.Error("Error fetching config:", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if conf.Server.Secure {
			key := c.GetHeader(authHeader)
			if subtle.ConstantTimeCompare([]byte(key), []byte(conf.Server.SecretKey)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API key"})
				return
			}
		}
		c.Next()
	}
}
