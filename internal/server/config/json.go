package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/credcore/internal/flagx"
	"github.com/dmitrijs2005/credcore/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Intervals use
// timex.Duration, so "15m" and integer nanoseconds are both accepted.
// Zero values leave the corresponding Config field untouched.
type JsonConfig struct {
	HTTPAddr    string         `json:"http_addr"`
	GRPCAddr    string         `json:"grpc_addr"`
	DatabaseDSN string         `json:"database_dsn"`
	UserStore   string         `json:"user_store"`
	DBTimeout   timex.Duration `json:"db_timeout"`

	SecretKey        string         `json:"secret_key"`
	SigningAlgorithm string         `json:"signing_algorithm"`
	Issuer           string         `json:"issuer"`
	AccessTokenTTL   timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL  timex.Duration `json:"refresh_token_ttl"`

	OTPTTL    timex.Duration `json:"otp_ttl"`
	OTPLength int            `json:"otp_length"`
	OTPStore  string         `json:"otp_store"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	OTPSender   string         `json:"otp_sender"`
	SendTimeout timex.Duration `json:"send_timeout"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`

	TwilioAccountSID string `json:"twilio_account_sid"`
	TwilioAuthToken  string `json:"twilio_auth_token"`
	TwilioFromNumber string `json:"twilio_from_number"`
	TwilioBaseURL    string `json:"twilio_base_url"`

	AWSRegion          string `json:"aws_region"`
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	SNSEndpoint        string `json:"sns_endpoint"`

	RegistrationMode     string `json:"registration_mode"`
	OTPRequestsPerMinute int    `json:"otp_requests_per_minute"`
	OTPRequestBurst      int    `json:"otp_request_burst"`

	Production *bool  `json:"production"`
	LogLevel   string `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config.
// Without the flag nothing is loaded.
func parseJson(config *Config) error {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	c.apply(config)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.UserStore, c.UserStore)
	if c.DBTimeout.Duration != 0 {
		config.DBTimeout = c.DBTimeout.Duration
	}

	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningAlgorithm, c.SigningAlgorithm)
	setString(&config.Issuer, c.Issuer)
	if c.AccessTokenTTL.Duration != 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration != 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}

	if c.OTPTTL.Duration != 0 {
		config.OTPTTL = c.OTPTTL.Duration
	}
	setInt(&config.OTPLength, c.OTPLength)
	setString(&config.OTPStore, c.OTPStore)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)

	setString(&config.OTPSender, c.OTPSender)
	if c.SendTimeout.Duration != 0 {
		config.SendTimeout = c.SendTimeout.Duration
	}

	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)

	setString(&config.TwilioAccountSID, c.TwilioAccountSID)
	setString(&config.TwilioAuthToken, c.TwilioAuthToken)
	setString(&config.TwilioFromNumber, c.TwilioFromNumber)
	setString(&config.TwilioBaseURL, c.TwilioBaseURL)

	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	setString(&config.SNSEndpoint, c.SNSEndpoint)

	setString(&config.RegistrationMode, c.RegistrationMode)
	setInt(&config.OTPRequestsPerMinute, c.OTPRequestsPerMinute)
	setInt(&config.OTPRequestBurst, c.OTPRequestBurst)

	if c.Production != nil {
		config.Production = *c.Production
	}
	setString(&config.LogLevel, c.LogLevel)
}
