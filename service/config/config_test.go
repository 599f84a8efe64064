package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.SolanaRPCURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "transactions.csv", cfg.OutputPath)
	assert.Equal(t, 0, cfg.OperationLimit)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OUTPUT_PATH", "out.csv")
	t.Setenv("OPERATION_LIMIT", "25")
	t.Setenv("DATABASE_URL", "postgres://localhost/solhist")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.SolanaRPCURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "out.csv", cfg.OutputPath)
	assert.Equal(t, 25, cfg.OperationLimit)
	assert.Equal(t, "postgres://localhost/solhist", cfg.DatabaseURL)
}

func TestLoad_InvalidOperationLimit(t *testing.T) {
	t.Setenv("OPERATION_LIMIT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPERATION_LIMIT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{
				SolanaRPCURL: DefaultRPCURL,
				OutputPath:   "transactions.csv",
			},
			wantErr: false,
		},
		{
			name: "missing rpc url",
			cfg: Config{
				OutputPath: "transactions.csv",
			},
			wantErr: true,
		},
		{
			name: "negative operation limit",
			cfg: Config{
				SolanaRPCURL:   DefaultRPCURL,
				OutputPath:     "transactions.csv",
				OperationLimit: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
