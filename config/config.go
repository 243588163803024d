/*
Copyright 2024 TGFC Authors.

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
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"FANOPS_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"FANOPS_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FANOPS_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"FANOPS_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"FANOPS_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"FANOPS_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FANOPS_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"FANOPS_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"FANOPS_REDIS_SKIP_TLS_VERIFY"`
}

// ShopifyConfig holds credentials for the order source. The store domain is
// the *.myshopify.com host; the token is an Admin API access token.
type ShopifyConfig struct {
	StoreDomain string `json:"store_domain" envconfig:"FANOPS_SHOPIFY_STORE_DOMAIN"`
	AccessToken string `json:"access_token" envconfig:"FANOPS_SHOPIFY_ACCESS_TOKEN"`
	ApiVersion  string `json:"api_version" envconfig:"FANOPS_SHOPIFY_API_VERSION"`
}

type QueueConfig struct {
	WebhookQueue      string `json:"webhook_queue" envconfig:"FANOPS_QUEUE_WEBHOOK"`
	NotificationQueue string `json:"notification_queue" envconfig:"FANOPS_QUEUE_NOTIFICATION"`
	MonitoringPort    string `json:"monitoring_port" envconfig:"FANOPS_QUEUE_MONITORING_PORT"`
}

// LinkingConfig carries the business-tuned windows of the linking engine.
// These are the values most likely to change, so they are configuration with
// defaults rather than literals in the cascade.
type LinkingConfig struct {
	RecencyWindowDays        int `json:"recency_window_days" envconfig:"FANOPS_LINKING_RECENCY_WINDOW_DAYS"`
	AutoLinkWindowDays       int `json:"auto_link_window_days" envconfig:"FANOPS_LINKING_AUTO_LINK_WINDOW_DAYS"`
	FingerprintWindowSeconds int `json:"fingerprint_window_seconds" envconfig:"FANOPS_LINKING_FINGERPRINT_WINDOW_SECONDS"`
	MinSubjectMatchLength    int `json:"min_subject_match_length" envconfig:"FANOPS_LINKING_MIN_SUBJECT_MATCH_LENGTH"`
}

// FollowUpConfig carries the follow-up cadence in days per pipeline stage
// group. The scheduler contract only requires the recompute to be idempotent;
// the exact cadence is business-configurable.
type FollowUpConfig struct {
	InquiryDays    int `json:"inquiry_days" envconfig:"FANOPS_FOLLOW_UP_INQUIRY_DAYS"`
	DesignDays     int `json:"design_days" envconfig:"FANOPS_FOLLOW_UP_DESIGN_DAYS"`
	PaymentDays    int `json:"payment_days" envconfig:"FANOPS_FOLLOW_UP_PAYMENT_DAYS"`
	MonitoringDays int `json:"monitoring_days" envconfig:"FANOPS_FOLLOW_UP_MONITORING_DAYS"`
}

// FormConfig identifies the third-party form-notification provider whose
// emails carry structured lead data.
type FormConfig struct {
	Senders        []string `json:"senders" envconfig:"FANOPS_FORM_SENDERS"`
	ProviderDomain string   `json:"provider_domain" envconfig:"FANOPS_FORM_PROVIDER_DOMAIN"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"FANOPS_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"FANOPS_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"FANOPS_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"FANOPS_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Shopify      ShopifyConfig    `json:"shopify"`
	Queue        QueueConfig      `json:"queue"`
	Linking      LinkingConfig    `json:"linking"`
	FollowUp     FollowUpConfig   `json:"follow_up"`
	Form         FormConfig       `json:"form"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Notification Notification     `json:"notification"`
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
	err = envconfig.Process("fanops", &cnf)
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
		return nil, errors.New("config not loaded from file. Create a json file called fanops.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Fanops Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Shopify.ApiVersion == "" {
		cnf.Shopify.ApiVersion = "2024-10"
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.NotificationQueue == "" {
		cnf.Queue.NotificationQueue = "new:notification"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5001"
	}

	// Business-tuned linking windows. Tuned by ops, not derived from anything.
	if cnf.Linking.RecencyWindowDays == 0 {
		cnf.Linking.RecencyWindowDays = 60
	}
	if cnf.Linking.AutoLinkWindowDays == 0 {
		cnf.Linking.AutoLinkWindowDays = 30
	}
	if cnf.Linking.FingerprintWindowSeconds == 0 {
		cnf.Linking.FingerprintWindowSeconds = 5
	}
	if cnf.Linking.MinSubjectMatchLength == 0 {
		cnf.Linking.MinSubjectMatchLength = 5
	}

	if cnf.FollowUp.InquiryDays == 0 {
		cnf.FollowUp.InquiryDays = 2
	}
	if cnf.FollowUp.DesignDays == 0 {
		cnf.FollowUp.DesignDays = 3
	}
	if cnf.FollowUp.PaymentDays == 0 {
		cnf.FollowUp.PaymentDays = 5
	}
	if cnf.FollowUp.MonitoringDays == 0 {
		cnf.FollowUp.MonitoringDays = 30
	}

	if len(cnf.Form.Senders) == 0 {
		cnf.Form.Senders = []string{"notifications@jotform.com", "noreply@jotform.com"}
	}
	if cnf.Form.ProviderDomain == "" {
		cnf.Form.ProviderDomain = "jotform.com"
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	_ = mockConfig.validateAndAddDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
