package cortex

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// LLMType identifies this adapter in logs and results
const LLMType = "snowflake-cortex"

// ChatModel sends chat conversations to a Snowflake Cortex LLM function.
// It owns one Session for its whole lifetime.
type ChatModel struct {
	model       string
	function    string
	temperature float64
	topP        float64
	maxTokens   int
	maxParallel int

	params  ConnectionParams
	session Session
	cache   Cache

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	settings    ConnectionSettings
	model       string
	function    string
	temperature float64
	topP        *float64
	maxTokens   *int
	maxParallel int
	builder     SessionBuilder
	lookup      EnvLookup
	cache       Cache
}

// Option configures a ChatModel
type Option func(*options)

// WithModel sets the Cortex model name
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithAuthenticator sets the Snowflake authenticator. The value is passed to
// the driver unchanged.
func WithAuthenticator(authenticator string) Option {
	return func(o *options) { o.settings.Authenticator = authenticator }
}

// WithAccount sets the Snowflake account identifier
func WithAccount(account string) Option {
	return func(o *options) { o.settings.Account = account }
}

// WithUsername sets the Snowflake user
func WithUsername(username string) Option {
	return func(o *options) { o.settings.Username = username }
}

// WithPassword sets the Snowflake password
func WithPassword(password string) Option {
	return func(o *options) { o.settings.Password = password }
}

// WithDatabase sets the database
func WithDatabase(database string) Option {
	return func(o *options) { o.settings.Database = database }
}

// WithSchema sets the schema
func WithSchema(schema string) Option {
	return func(o *options) { o.settings.Schema = schema }
}

// WithWarehouse sets the warehouse
func WithWarehouse(warehouse string) Option {
	return func(o *options) { o.settings.Warehouse = warehouse }
}

// WithRole sets the Snowflake role
func WithRole(role string) Option {
	return func(o *options) { o.settings.Role = role }
}

// WithConnectionSettings replaces all explicit connection settings at once
func WithConnectionSettings(settings ConnectionSettings) Option {
	return func(o *options) { o.settings = settings }
}

// WithCortexFunction sets the Cortex function to call (default "complete")
func WithCortexFunction(function string) Option {
	return func(o *options) { o.function = function }
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = t }
}

// WithTopP sets nucleus sampling
func WithTopP(p float64) Option {
	return func(o *options) { o.topP = &p }
}

// WithMaxTokens limits the reply length
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = &n }
}

// WithMaxParallel bounds how many conversations Generate runs at once
func WithMaxParallel(n int) Option {
	return func(o *options) { o.maxParallel = n }
}

// WithSessionBuilder overrides the session factory (default SnowflakeBuilder)
func WithSessionBuilder(b SessionBuilder) Option {
	return func(o *options) { o.builder = b }
}

// WithEnvLookup overrides how environment variables are read
func WithEnvLookup(lookup EnvLookup) Option {
	return func(o *options) { o.lookup = lookup }
}

// WithCache enables reply caching
func WithCache(c Cache) Option {
	return func(o *options) { o.cache = c }
}

// New resolves the connection settings and creates the session.
// Missing required settings fail here, before any connection attempt.
func New(ctx context.Context, opts ...Option) (*ChatModel, error) {
	o := options{
		model:       DefaultModel,
		function:    DefaultFunction,
		maxParallel: 1,
		builder:     SnowflakeBuilder{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.validate(); err != nil {
		return nil, err
	}

	params, err := ResolveConnection(o.settings, o.lookup)
	if err != nil {
		return nil, err
	}

	cm := &ChatModel{
		model:       o.model,
		function:    o.function,
		temperature: o.temperature,
		topP:        defaultTopP,
		maxTokens:   defaultMaxTokens,
		maxParallel: o.maxParallel,
		params:      params,
		cache:       o.cache,
	}
	if o.topP != nil {
		cm.topP = *o.topP
	}
	if o.maxTokens != nil {
		cm.maxTokens = *o.maxTokens
	}

	auth, _ := params.Authenticator()
	log.Info().
		Str("model", cm.model).
		Str("function", cm.function).
		Str("account", params[ParamAccount]).
		Str("authenticator", auth).
		Msg("Creating Cortex chat model")

	session, err := o.builder.Create(ctx, params.Clone())
	if err != nil {
		return nil, fmt.Errorf("create snowflake session: %w", err)
	}
	cm.session = session

	return cm, nil
}

func (o *options) validate() error {
	if strings.TrimSpace(o.model) == "" {
		return NewConfigError("model name cannot be empty", nil, "model")
	}
	if err := ValidateFunction(o.function); err != nil {
		return err
	}
	if o.temperature < 0 || o.temperature > 1 {
		return NewConfigError(fmt.Sprintf("temperature must be between 0 and 1, got: %v", o.temperature), nil, "temperature")
	}
	if o.topP != nil && (*o.topP < 0 || *o.topP > 1) {
		return NewConfigError(fmt.Sprintf("top_p must be between 0 and 1, got: %v", *o.topP), nil, "top_p")
	}
	if o.maxTokens != nil && *o.maxTokens <= 0 {
		return NewConfigError(fmt.Sprintf("max tokens must be positive, got: %d", *o.maxTokens), nil, "max_tokens")
	}
	if o.maxParallel <= 0 {
		return NewConfigError(fmt.Sprintf("max parallel must be positive, got: %d", o.maxParallel), nil, "max_parallel")
	}
	if o.builder == nil {
		return NewConfigError("session builder must not be nil", nil)
	}
	return nil
}

// Model returns the Cortex model name
func (c *ChatModel) Model() string {
	return c.model
}

// Function returns the Cortex function name
func (c *ChatModel) Function() string {
	return c.function
}

// Authenticator returns the configured authenticator and whether one is set
func (c *ChatModel) Authenticator() (string, bool) {
	return c.params.Authenticator()
}

// Params returns a copy of the resolved connection params
func (c *ChatModel) Params() ConnectionParams {
	return c.params.Clone()
}

// LLMType returns the adapter identifier
func (c *ChatModel) LLMType() string {
	return LLMType
}

type callOptions struct {
	stop []string
}

// CallOption configures a single call
type CallOption func(*callOptions)

// WithStop truncates the reply at the first occurrence of any of the sequences
func WithStop(stop ...string) CallOption {
	return func(o *callOptions) { o.stop = append(o.stop, stop...) }
}

// Invoke sends one conversation and returns the assistant reply
func (c *ChatModel) Invoke(ctx context.Context, messages []Message, opts ...CallOption) (Message, error) {
	res, err := c.InvokeResult(ctx, messages, opts...)
	if err != nil {
		return Message{}, err
	}
	return res.Generations[0].Message, nil
}

// InvokeResult sends one conversation and returns the reply with its metadata
func (c *ChatModel) InvokeResult(ctx context.Context, messages []Message, opts ...CallOption) (*ChatResult, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	dicts, err := ConvertMessages(messages)
	if err != nil {
		return nil, err
	}

	stmt, err := buildStatement(c.function, c.model, dicts, completionOptions{
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	raw, cached, err := c.query(ctx, runID, stmt, len(messages))
	if err != nil {
		return nil, err
	}

	out, err := parseCompletion(raw)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Cortex reply could not be parsed")
		return nil, err
	}
	if c.cache != nil && !cached {
		c.cache.Set(cacheKey(stmt), raw)
	}

	model := out.Model
	if model == "" {
		model = c.model
	}

	msg := Message{
		Role:    RoleAssistant,
		Content: truncateAtStop(out.Content, co.stop),
		Usage:   out.Usage,
	}
	info := map[string]string{
		"model":    model,
		"run_id":   runID,
		"llm_type": LLMType,
	}

	return &ChatResult{
		Generations: []ChatGeneration{newChatGeneration(msg, info)},
		Model:       model,
		Usage:       out.Usage,
		RunID:       runID,
		Cached:      cached,
	}, nil
}

// query runs the statement through the cache and session
func (c *ChatModel) query(ctx context.Context, runID string, stmt statement, messageCount int) (string, bool, error) {
	var key string
	if c.cache != nil {
		key = cacheKey(stmt)
		if raw, ok := c.cache.Get(key); ok {
			return raw, true, nil
		}
	}

	startTime := time.Now()
	log.Info().
		Str("run_id", runID).
		Str("model", c.model).
		Str("function", c.function).
		Int("messages", messageCount).
		Msg("Cortex request started")

	raw, err := c.session.QueryString(ctx, stmt.SQL, stmt.Args...)
	duration := time.Since(startTime)
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Str("model", c.model).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("Cortex request failed")
		return "", false, &QueryError{Model: c.model, Function: c.function, Err: err}
	}

	log.Info().
		Str("run_id", runID).
		Str("model", c.model).
		Int64("duration_ms", duration.Milliseconds()).
		Int("response_length", len(raw)).
		Msg("Cortex request completed")

	return raw, false, nil
}

// Generate runs each conversation through Invoke and returns one generation
// group per conversation, in input order.
func (c *ChatModel) Generate(ctx context.Context, conversations [][]Message, opts ...CallOption) (*LLMResult, error) {
	generations := make([][]ChatGeneration, len(conversations))
	runIDs := make([]string, len(conversations))
	usages := make([]*Usage, len(conversations))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxParallel)

	for i, messages := range conversations {
		g.Go(func() error {
			res, err := c.InvokeResult(gCtx, messages, opts...)
			if err != nil {
				return fmt.Errorf("conversation %d: %w", i, err)
			}
			generations[i] = res.Generations
			runIDs[i] = res.RunID
			usages[i] = res.Usage
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &LLMResult{
		Generations: generations,
		RunIDs:      runIDs,
	}
	for _, u := range usages {
		if u == nil {
			continue
		}
		result.Usage.PromptTokens += u.PromptTokens
		result.Usage.CompletionTokens += u.CompletionTokens
		result.Usage.TotalTokens += u.TotalTokens
	}

	return result, nil
}

// Stream yields the reply in word-sized chunks. Cortex returns the whole
// reply at once, so the first chunk arrives only after the call completes.
func (c *ChatModel) Stream(ctx context.Context, messages []Message, opts ...CallOption) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msg, err := c.Invoke(ctx, messages, opts...)
		if err != nil {
			yield("", err)
			return
		}
		for _, chunk := range SplitChunks(msg.Content) {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// SplitChunks splits text after each space; joining the chunks restores the text
func SplitChunks(text string) []string {
	var chunks []string
	for _, s := range strings.SplitAfter(text, " ") {
		if s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

// Close releases the session. Subsequent calls return the first result.
func (c *ChatModel) Close() error {
	c.closeOnce.Do(func() {
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
	})
	return c.closeErr
}
