package config

import "fmt"

type RunningEnvironment string

const Development RunningEnvironment = "development"
const Production RunningEnvironment = "production"

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	Server             ServerConfig
	API                APIConfig
	Credentials        CredentialsConfig
	Redis              RedisConfig
	Refresher          RefresherConfig
	Messages           MessagesConfig
	Monitoring         MonitoringConfig
}

func (c *Config) Validate() error {
	if c.RunningEnvironment != Development && c.RunningEnvironment != Production {
		return fmt.Errorf("unknown running environment %q (must be one of %s, %s)", c.RunningEnvironment, Development, Production)
	}
	err := c.Server.Validate()
	if err != nil {
		return err
	}
	err = c.API.Validate()
	if err != nil {
		return err
	}
	err = c.Credentials.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Redis.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Refresher.Validate()
	if err != nil {
		return err
	}
	return nil
}
