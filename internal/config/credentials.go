package config

import "fmt"

type CredentialsConfig struct {
	AccessTokenCookieName string
	KeyPrefix             string
	Encryption            TokenEncryptionConfig
}

type TokenEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

func (c *CredentialsConfig) Validate(e RunningEnvironment) error {
	if c.AccessTokenCookieName == "" {
		return fmt.Errorf("the access token cookie name cannot be empty")
	}
	if c.Encryption.Enabled && len(c.Encryption.SecretKey) != 32 {
		return fmt.Errorf(
			"token encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.Encryption.SecretKey),
		)
	}
	if e != Development && !c.Encryption.Enabled {
		return fmt.Errorf("credentials have to be encrypted at rest in production")
	}
	return nil
}
