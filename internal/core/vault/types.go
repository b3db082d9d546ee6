package vault

// Type represents the type of vault.
type Type string

const (
	// TypeDotEnv represents a DotEnv vault (environment variables and .env files).
	TypeDotEnv Type = "dotenv"
)
