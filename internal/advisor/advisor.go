// Package advisor asks an OpenAI-compatible chat model (DeepSeek by default)
// for short car-care advice built from forecast facts.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	"github.com/lox/clearyfi/internal/metrics"
)

type Topic string

const (
	TopicWash        Topic = "car_wash"
	TopicTires       Topic = "tires"
	TopicRoads       Topic = "roads"
	TopicMaintenance Topic = "maintenance"
)

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"

	temperature    = 0.3
	maxTokens      = 600
	requestTimeout = 20 * time.Second
)

var ErrEmptyAnswer = errors.New("advisor: empty answer")

// Advisor returns free-text advice for a topic. facts is marshalled to JSON
// and sent as the user prompt.
type Advisor interface {
	Advise(ctx context.Context, topic Topic, facts any) (string, error)
}

// Nop never has advice. It is used when no API key is configured.
type Nop struct{}

func (Nop) Advise(context.Context, Topic, any) (string, error) { return "", nil }

var systemPrompts = map[Topic]string{
	TopicWash: "You are a car care expert. Using the weather facts provided, say whether and when " +
		"to wash the car in the next days. Answer in 3-5 short sentences.",
	TopicTires: "You are a tire specialist. Using the weather facts provided, advise on seasonal " +
		"tire changes and tire pressure. Answer in 3-5 short sentences.",
	TopicRoads: "You are a driving safety instructor. Using the weather facts provided, describe road " +
		"conditions and give concrete safe-driving tips. Answer in 3-5 short sentences.",
	TopicMaintenance: "You are an experienced car mechanic. Using the weather facts and season provided, " +
		"list the most important maintenance checks for this week. Answer in 3-5 short sentences.",
}

type Client struct {
	client   openai.Client
	model    string
	language string
	log      logrus.FieldLogger
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL  string
	model    string
	language string
	extra    []option.RequestOption
}

func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

func WithModel(m string) Option {
	return func(o *clientOptions) { o.model = m }
}

// WithLanguage sets the language the model is asked to answer in.
func WithLanguage(lang string) Option {
	return func(o *clientOptions) { o.language = lang }
}

func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *clientOptions) { o.extra = append(o.extra, opts...) }
}

func New(apiKey string, log logrus.FieldLogger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("advisor: api key not set")
	}
	o := clientOptions{baseURL: DefaultBaseURL, model: DefaultModel, language: "ru"}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(o.baseURL),
		option.WithMaxRetries(1),
	}, o.extra...)

	return &Client{
		client:   openai.NewClient(reqOpts...),
		model:    o.model,
		language: o.language,
		log:      log.WithField("component", "advisor"),
	}, nil
}

func (c *Client) Advise(ctx context.Context, topic Topic, facts any) (string, error) {
	system, ok := systemPrompts[topic]
	if !ok {
		return "", fmt.Errorf("advisor: unknown topic %q", topic)
	}
	payload, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("advisor: encode facts: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system + " " + languageInstruction(c.language)),
			openai.UserMessage(string(payload)),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		metrics.AdvisorCallsTotal.WithLabelValues(string(topic), "error").Inc()
		return "", fmt.Errorf("advisor: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.AdvisorCallsTotal.WithLabelValues(string(topic), "empty").Inc()
		return "", ErrEmptyAnswer
	}

	metrics.AdvisorCallsTotal.WithLabelValues(string(topic), "ok").Inc()
	c.log.WithFields(logrus.Fields{
		"topic":    topic,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("advisor: answered")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func languageInstruction(lang string) string {
	if lang == "en" {
		return "Answer in English."
	}
	return "Answer in Russian."
}
