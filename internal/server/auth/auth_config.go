package auth

import "time"

type Config struct {
	Enabled            bool          `mapstructure:"enabled"`
	TokenIssuer        string        `mapstructure:"token_issuer"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"`
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`
	EmailAddr          string        `mapstructure:"email_addr"`
	EmailOTPLength     int           `mapstructure:"email_otp_length"`
	EmailOTPExpiry     time.Duration `mapstructure:"email_otp_expiry"`
}
