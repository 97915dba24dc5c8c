package config

// CLIConfig is the content of the quota-cli config file.
type CLIConfig struct {
	// Server is the ledger base URL.
	Server string `yaml:"server"`

	// AdminToken authenticates identity commands.
	AdminToken string `yaml:"admin_token,omitempty"`

	// Output is the default output format: table, json or yaml.
	Output string `yaml:"output"`

	// CAFile is an extra PEM bundle to trust for https servers.
	CAFile string `yaml:"ca_file,omitempty"`

	// Wallet is the default identity file used to sign requests.
	Wallet string `yaml:"wallet,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://127.0.0.1:5080",
		Output: "table",
	}
}
