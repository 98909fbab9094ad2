// Package http provides a webhook destination that posts each notification to a URL.
package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/metadata"
	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "http"

// TopicPlaceholder in the url is replaced by the topic of each publish call.
const TopicPlaceholder = "{topic}"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// Build creates the webhook publisher. Parameters: url (required), method (POST),
// headers (mapping) and timeout (10s).
func Build(_ context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	url, err := params.String("url")
	if err != nil {
		return nil, err
	}
	method, err := params.StringOr("method", nethttp.MethodPost)
	if err != nil {
		return nil, err
	}
	method = strings.ToUpper(method)
	if method != nethttp.MethodPost && method != nethttp.MethodPut && method != nethttp.MethodPatch {
		return nil, errspkg.InvalidParamError{Component: name, Param: "method", Reason: fmt.Sprintf("unsupported method %q", method)}
	}
	headers, err := params.StringMap("headers")
	if err != nil {
		return nil, err
	}
	timeout, err := params.DurationOr("timeout", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return PublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: marshalFunc(url, method, headers),
			Client:             &nethttp.Client{Timeout: timeout},
		},
		logger,
	)
}

func marshalFunc(url, method string, headers map[string]string) http.MarshalMessageFunc {
	return func(topic string, msg *message.Message) (*nethttp.Request, error) {
		req, err := http.DefaultMarshalMessageFunc(strings.ReplaceAll(url, TopicPlaceholder, topic), msg)
		if err != nil {
			return nil, err
		}
		req.Method = method
		if ct := msg.Metadata.Get(metadata.KeyContentType); ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}
}
