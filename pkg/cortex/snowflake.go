package cortex

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snowflakedb/gosnowflake"
)

// SnowflakeBuilder creates sessions through the gosnowflake driver
type SnowflakeBuilder struct{}

// Create parses the params into a driver config, opens a pool and verifies
// the connection before returning.
func (SnowflakeBuilder) Create(ctx context.Context, params ConnectionParams) (Session, error) {
	dsn, err := BuildDSN(params)
	if err != nil {
		return nil, err
	}

	cfg, err := gosnowflake.ParseDSN(dsn)
	if err != nil {
		return nil, NewConfigError("invalid connection parameters", err)
	}

	db := sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, *cfg))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to snowflake account %s: %w", params[ParamAccount], err)
	}

	auth, _ := params.Authenticator()
	log.Debug().
		Str("account", params[ParamAccount]).
		Str("user", params[ParamUser]).
		Str("warehouse", params[ParamWarehouse]).
		Str("authenticator", auth).
		Msg("Snowflake session established")

	return NewDBSession(db), nil
}

// BuildDSN renders connection params in the gosnowflake DSN format:
// user:password@account/database/schema?warehouse=...&role=...
func BuildDSN(params ConnectionParams) (string, error) {
	account := params[ParamAccount]
	if account == "" {
		return "", NewConfigError("account must not be empty", nil, ParamAccount)
	}

	q := url.Values{}
	for _, k := range []string{ParamWarehouse, ParamRole, ParamAuthenticator, ParamSessionKeepAlive} {
		if v, ok := params[k]; ok && v != "" {
			q.Set(k, v)
		}
	}

	// The driver query-unescapes the user info, so "+" must be sent as %2B
	var b strings.Builder
	b.WriteString(url.QueryEscape(params[ParamUser]))
	b.WriteByte(':')
	b.WriteString(url.QueryEscape(params[ParamPassword]))
	b.WriteByte('@')
	b.WriteString(account)
	b.WriteString("/" + params[ParamDatabase] + "/" + params[ParamSchema])
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}

	return b.String(), nil
}
