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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "4100"

	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkDevnet  = "devnet"

	SubmitStrategyPoll = "poll"
	SubmitStrategyWait = "wait"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"MINTLINE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"MINTLINE_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"MINTLINE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"MINTLINE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"MINTLINE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"MINTLINE_REDIS_SKIP_TLS_VERIFY"`
}

// NetworkConfig describes the ledger network mintline submits against.
// Class drives both faucet availability and the default submit strategy:
// testnet/devnet allow faucet funding and default to submit-and-wait,
// mainnet forbids faucet funding and defaults to fire-and-poll.
type NetworkConfig struct {
	Endpoint       string `json:"endpoint" envconfig:"MINTLINE_NETWORK_ENDPOINT"`
	FaucetUrl      string `json:"faucet_url" envconfig:"MINTLINE_NETWORK_FAUCET_URL"`
	Class          string `json:"class" envconfig:"MINTLINE_NETWORK_CLASS"`
	SubmitStrategy string `json:"submit_strategy" envconfig:"MINTLINE_NETWORK_SUBMIT_STRATEGY"`
	SourceTag      uint32 `json:"source_tag" envconfig:"MINTLINE_NETWORK_SOURCE_TAG"`
}

// SubmissionConfig tunes the validation polling loop. All bounds are hard
// limits, there is no unbounded wait anywhere in the pipeline.
type SubmissionConfig struct {
	PollIntervalSec   int `json:"poll_interval_sec" envconfig:"MINTLINE_SUBMISSION_POLL_INTERVAL_SEC"`
	MaxPollAttempts   int `json:"max_poll_attempts" envconfig:"MINTLINE_SUBMISSION_MAX_POLL_ATTEMPTS"`
	AccountLockTTLSec int `json:"account_lock_ttl_sec" envconfig:"MINTLINE_SUBMISSION_ACCOUNT_LOCK_TTL_SEC"`
}

type FundingConfig struct {
	MinReserve  string `json:"min_reserve" envconfig:"MINTLINE_FUNDING_MIN_RESERVE"`
	PollUnitSec int    `json:"poll_unit_sec" envconfig:"MINTLINE_FUNDING_POLL_UNIT_SEC"`
}

type BatchConfig struct {
	MaxAttempts      int `json:"max_attempts" envconfig:"MINTLINE_BATCH_MAX_ATTEMPTS"`
	RetryCooldownSec int `json:"retry_cooldown_sec" envconfig:"MINTLINE_BATCH_RETRY_COOLDOWN_SEC"`
	MaxPollAttempts  int `json:"max_poll_attempts" envconfig:"MINTLINE_BATCH_MAX_POLL_ATTEMPTS"`
}

type QueueConfig struct {
	BatchQueue       string `json:"batch_queue" envconfig:"MINTLINE_QUEUE_BATCH_QUEUE"`
	NumberOfQueues   int    `json:"number_of_queues" envconfig:"MINTLINE_QUEUE_NUMBER_OF_QUEUES"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"MINTLINE_QUEUE_MAX_RETRY_ATTEMPTS"`
}

// AccountConfig carries the signing material for one managed account.
// Seeds are immutable configuration, read-only at orchestration time.
type AccountConfig struct {
	Address     string `json:"address"`
	Seed        string `json:"seed"`
	RequireAuth bool   `json:"require_auth"`
}

type AccountsConfig struct {
	Issuer AccountConfig `json:"issuer"`
	Hot    AccountConfig `json:"hot"`
	Seller AccountConfig `json:"seller"`
	Buyer  AccountConfig `json:"buyer"`
}

type RateConfig struct {
	Url    string `json:"url" envconfig:"MINTLINE_RATE_URL"`
	TTLSec int    `json:"ttl_sec" envconfig:"MINTLINE_RATE_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"MINTLINE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"MINTLINE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"MINTLINE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"MINTLINE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Network      NetworkConfig    `json:"network"`
	Submission   SubmissionConfig `json:"submission"`
	Funding      FundingConfig    `json:"funding"`
	Batch        BatchConfig      `json:"batch"`
	Queue        QueueConfig      `json:"queue"`
	Accounts     AccountsConfig   `json:"accounts"`
	Rate         RateConfig       `json:"rate"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("mintline", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called mintline.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Mintline Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Network.Endpoint == "" {
		log.Println("Error: Network endpoint is empty. It's a required field.")
		return errors.New("network endpoint is required")
	}

	switch cnf.Network.Class {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet:
	case "":
		log.Printf("Warning: Network class not specified. Defaulting to %s", NetworkTestnet)
		cnf.Network.Class = NetworkTestnet
	default:
		return fmt.Errorf("unknown network class %q", cnf.Network.Class)
	}

	switch cnf.Network.SubmitStrategy {
	case SubmitStrategyPoll, SubmitStrategyWait:
	case "":
		// test-class networks answer submit-and-wait quickly, mainnet gets
		// the conservative fire-and-poll path.
		if cnf.Network.Class == NetworkMainnet {
			cnf.Network.SubmitStrategy = SubmitStrategyPoll
		} else {
			cnf.Network.SubmitStrategy = SubmitStrategyWait
		}
	default:
		return fmt.Errorf("unknown submit strategy %q", cnf.Network.SubmitStrategy)
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Network.Endpoint = strings.TrimSpace(cnf.Network.Endpoint)
	cnf.Network.FaucetUrl = strings.TrimSpace(cnf.Network.FaucetUrl)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Network.SourceTag == 0 {
		cnf.Network.SourceTag = 84661000
	}

	if cnf.Submission.PollIntervalSec <= 0 {
		cnf.Submission.PollIntervalSec = 1
	}
	if cnf.Submission.MaxPollAttempts <= 0 {
		cnf.Submission.MaxPollAttempts = 10
	}
	if cnf.Submission.AccountLockTTLSec <= 0 {
		cnf.Submission.AccountLockTTLSec = 120
	}

	if cnf.Funding.MinReserve == "" {
		cnf.Funding.MinReserve = "10"
	}
	if cnf.Funding.PollUnitSec <= 0 {
		cnf.Funding.PollUnitSec = 2
	}

	if cnf.Batch.MaxAttempts <= 0 {
		cnf.Batch.MaxAttempts = 3
	}
	if cnf.Batch.RetryCooldownSec <= 0 {
		cnf.Batch.RetryCooldownSec = 30
	}
	if cnf.Batch.MaxPollAttempts <= 0 {
		cnf.Batch.MaxPollAttempts = 30
	}

	if cnf.Queue.BatchQueue == "" {
		cnf.Queue.BatchQueue = "new:batch_mint"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 4
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 3
	}

	if cnf.Rate.TTLSec <= 0 {
		cnf.Rate.TTLSec = 300
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// AutoFundingEnabled reports whether the faucet may be used to create and
// fund missing accounts. Never true on mainnet, whatever the faucet URL says.
func (cnf *Configuration) AutoFundingEnabled() bool {
	return cnf.Network.Class != NetworkMainnet && cnf.Network.FaucetUrl != ""
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
