package cortex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv returns the seven required settings as environment variables
func testEnv() map[string]string {
	return map[string]string{
		EnvAccount:   "test_account",
		EnvUsername:  "test_user",
		EnvPassword:  "test_password",
		EnvDatabase:  "test_db",
		EnvSchema:    "test_schema",
		EnvWarehouse: "test_warehouse",
		EnvRole:      "test_role",
	}
}

func mapLookup(env map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestResolveConnection_FromEnvironment(t *testing.T) {
	params, err := ResolveConnection(ConnectionSettings{}, mapLookup(testEnv()))
	require.NoError(t, err)

	assert.Equal(t, ConnectionParams{
		ParamAccount:          "test_account",
		ParamUser:             "test_user",
		ParamPassword:         "test_password",
		ParamDatabase:         "test_db",
		ParamSchema:           "test_schema",
		ParamWarehouse:        "test_warehouse",
		ParamRole:             "test_role",
		ParamSessionKeepAlive: "true",
	}, params)
}

func TestResolveConnection_Authenticator(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		envValue string
		want     string
		wantSet  bool
	}{
		{
			name:     "explicit authenticator",
			explicit: "username_password_mfa",
			want:     "username_password_mfa",
			wantSet:  true,
		},
		{
			name:     "authenticator from environment",
			envValue: "oauth",
			want:     "oauth",
			wantSet:  true,
		},
		{
			name:    "no authenticator",
			wantSet: false,
		},
		{
			name:     "value passed through verbatim",
			explicit: "snowflake",
			want:     "snowflake",
			wantSet:  true,
		},
		{
			name:     "explicit overrides environment",
			explicit: "externalbrowser",
			envValue: "oauth",
			want:     "externalbrowser",
			wantSet:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv()
			if tt.envValue != "" {
				env[EnvAuthenticator] = tt.envValue
			}

			params, err := ResolveConnection(ConnectionSettings{Authenticator: tt.explicit}, mapLookup(env))
			require.NoError(t, err)

			got, ok := params.Authenticator()
			assert.Equal(t, tt.wantSet, ok)
			assert.Equal(t, tt.want, got)
			if !tt.wantSet {
				assert.NotContains(t, params, ParamAuthenticator)
			}
		})
	}
}

func TestResolveConnection_EmptyEnvAuthenticatorIsUnset(t *testing.T) {
	env := testEnv()
	env[EnvAuthenticator] = ""

	params, err := ResolveConnection(ConnectionSettings{}, mapLookup(env))
	require.NoError(t, err)
	assert.NotContains(t, params, ParamAuthenticator)
}

func TestResolveConnection_ExplicitOverridesEnvironment(t *testing.T) {
	settings := ConnectionSettings{
		Account:   "explicit_account",
		Warehouse: "explicit_wh",
	}

	params, err := ResolveConnection(settings, mapLookup(testEnv()))
	require.NoError(t, err)

	assert.Equal(t, "explicit_account", params[ParamAccount])
	assert.Equal(t, "explicit_wh", params[ParamWarehouse])
	assert.Equal(t, "test_user", params[ParamUser])
}

func TestResolveConnection_MissingRequired(t *testing.T) {
	env := testEnv()
	delete(env, EnvPassword)
	delete(env, EnvRole)

	params, err := ResolveConnection(ConnectionSettings{}, mapLookup(env))
	require.Error(t, err)
	assert.Nil(t, params)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"password (SNOWFLAKE_PASSWORD)", "role (SNOWFLAKE_ROLE)"}, cfgErr.Fields)
}

func TestResolveConnection_ExplicitFillsMissingEnv(t *testing.T) {
	env := testEnv()
	delete(env, EnvPassword)

	params, err := ResolveConnection(ConnectionSettings{Password: "secret"}, mapLookup(env))
	require.NoError(t, err)
	assert.Equal(t, "secret", params[ParamPassword])
}

func TestResolveConnection_ProcessEnvironment(t *testing.T) {
	for k, v := range testEnv() {
		t.Setenv(k, v)
	}
	t.Setenv(EnvAuthenticator, "oauth")

	params, err := ResolveConnection(ConnectionSettings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test_account", params[ParamAccount])
	assert.Equal(t, "oauth", params[ParamAuthenticator])
}

func TestConnectionParams_StringMasksPassword(t *testing.T) {
	params := ConnectionParams{
		ParamAccount:  "acct",
		ParamPassword: "hunter2",
	}

	s := params.String()
	assert.Equal(t, "account=acct password=***", s)
	assert.NotContains(t, s, "hunter2")
}

func TestConnectionParams_Clone(t *testing.T) {
	params := ConnectionParams{ParamAccount: "acct"}
	clone := params.Clone()
	clone[ParamAccount] = "other"

	assert.Equal(t, "acct", params[ParamAccount])
}
