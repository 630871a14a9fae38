// Package config loads service configuration from the environment. Each
// concern gets its own struct and loader so tests can parse or construct
// them independently.
package config

// AppConfig bundles everything the server binary needs at startup.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

// LoadApp parses every configuration section. Logging comes first so a
// failure in the rest can at least be reported through a configured
// logger.
func LoadApp() (AppConfig, error) {
	var (
		app AppConfig
		err error
	)
	if app.Log, err = LoadLog(); err != nil {
		return AppConfig{}, err
	}
	if app.Server, err = LoadServer(); err != nil {
		return AppConfig{}, err
	}
	return app, nil
}
