package cortex

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
)

// Environment variables consulted when a setting is not given explicitly
const (
	EnvAccount       = "SNOWFLAKE_ACCOUNT"
	EnvUsername      = "SNOWFLAKE_USERNAME"
	EnvPassword      = "SNOWFLAKE_PASSWORD"
	EnvDatabase      = "SNOWFLAKE_DATABASE"
	EnvSchema        = "SNOWFLAKE_SCHEMA"
	EnvWarehouse     = "SNOWFLAKE_WAREHOUSE"
	EnvRole          = "SNOWFLAKE_ROLE"
	EnvAuthenticator = "SNOWFLAKE_AUTHENTICATOR"
)

// Connection parameter keys
const (
	ParamAccount          = "account"
	ParamUser             = "user"
	ParamPassword         = "password"
	ParamDatabase         = "database"
	ParamSchema           = "schema"
	ParamWarehouse        = "warehouse"
	ParamRole             = "role"
	ParamAuthenticator    = "authenticator"
	ParamSessionKeepAlive = "client_session_keep_alive"
)

// EnvLookup reports the value of an environment variable and whether it was set
type EnvLookup func(key string) (string, bool)

// ConnectionSettings holds explicitly supplied connection values.
// An empty field means "not supplied" and falls back to the environment.
type ConnectionSettings struct {
	Account       string
	Username      string
	Password      string
	Database      string
	Schema        string
	Warehouse     string
	Role          string
	Authenticator string
}

// ConnectionParams is the flat mapping handed to a SessionBuilder
type ConnectionParams map[string]string

// Authenticator returns the authenticator and whether one is configured
func (p ConnectionParams) Authenticator() (string, bool) {
	v, ok := p[ParamAuthenticator]
	return v, ok
}

// Clone returns a copy of the params
func (p ConnectionParams) Clone() ConnectionParams {
	return maps.Clone(p)
}

// String renders the params in key order with the password masked
func (p ConnectionParams) String() string {
	keys := slices.Sorted(maps.Keys(p))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := p[k]
		if k == ParamPassword {
			v = "***"
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

type requiredSetting struct {
	param    string
	env      string
	explicit func(ConnectionSettings) string
}

var requiredSettings = []requiredSetting{
	{ParamAccount, EnvAccount, func(s ConnectionSettings) string { return s.Account }},
	{ParamUser, EnvUsername, func(s ConnectionSettings) string { return s.Username }},
	{ParamPassword, EnvPassword, func(s ConnectionSettings) string { return s.Password }},
	{ParamDatabase, EnvDatabase, func(s ConnectionSettings) string { return s.Database }},
	{ParamSchema, EnvSchema, func(s ConnectionSettings) string { return s.Schema }},
	{ParamWarehouse, EnvWarehouse, func(s ConnectionSettings) string { return s.Warehouse }},
	{ParamRole, EnvRole, func(s ConnectionSettings) string { return s.Role }},
}

// resolve returns the explicit value, else the environment value, else "" and false
func resolve(explicit, env string, lookup EnvLookup) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if v, ok := lookup(env); ok && v != "" {
		return v, true
	}
	return "", false
}

// ResolveConnection builds connection params from explicit settings with
// environment fallback. A nil lookup reads the process environment.
// The authenticator key is present only when a value was found.
func ResolveConnection(settings ConnectionSettings, lookup EnvLookup) (ConnectionParams, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	params := ConnectionParams{
		ParamSessionKeepAlive: "true",
	}

	var missing []string
	for _, rs := range requiredSettings {
		v, ok := resolve(rs.explicit(settings), rs.env, lookup)
		if !ok {
			missing = append(missing, fmt.Sprintf("%s (%s)", rs.param, rs.env))
			continue
		}
		params[rs.param] = v
	}
	if len(missing) > 0 {
		return nil, NewConfigError("required setting not provided and environment variable not set", nil, missing...)
	}

	// Authenticator names are passed through verbatim
	if v, ok := resolve(settings.Authenticator, EnvAuthenticator, lookup); ok {
		params[ParamAuthenticator] = v
	}

	return params, nil
}
