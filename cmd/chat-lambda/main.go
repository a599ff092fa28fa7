// chat-lambda serves the booking chat over API Gateway without a resident
// server. Sessions live in DynamoDB so any invocation can continue any
// conversation.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/bookbotclinic/bookbot/cmd/mainconfig"
	appconfig "github.com/bookbotclinic/bookbot/internal/config"
	"github.com/bookbotclinic/bookbot/internal/dialogue"
	"github.com/bookbotclinic/bookbot/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		panic(err)
	}

	store := dialogue.NewDynamoSessionStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionTable, cfg.SessionTTL)

	var generator dialogue.TextGenerator
	var extractor *dialogue.FieldExtractor
	if cfg.BedrockModelID != "" {
		client := dialogue.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		generator = dialogue.NewLLMTextGenerator(client, cfg.BedrockModelID, cfg.GeneratorTimeout)
		extractor = dialogue.NewFieldExtractor(client, cfg.BedrockModelID)
	}

	engine := dialogue.NewEngine(store, nil, generator, extractor, nil, logger)

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, engine, evt)
	})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

func handle(ctx context.Context, engine *dialogue.Engine, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	if path != "/chat" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return jsonError(http.StatusBadRequest, "invalid body"), nil
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return jsonError(http.StatusBadRequest, "invalid request body"), nil
	}
	if req.SessionID == "" {
		req.SessionID = headerValue(evt.Headers, "x-session-id")
	}

	res, err := engine.Turn(ctx, req.SessionID, req.Message)
	if errors.Is(err, dialogue.ErrEmptyMessage) {
		return jsonError(http.StatusBadRequest, "message is required"), nil
	}
	if err != nil {
		return jsonError(http.StatusInternalServerError, "internal server error"), nil
	}

	payload, err := json.Marshal(chatResponse{Reply: res.Reply, SessionID: res.SessionID})
	if err != nil {
		return jsonError(http.StatusInternalServerError, "internal server error"), nil
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Body:       string(payload),
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

func jsonError(status int, msg string) events.APIGatewayV2HTTPResponse {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(payload),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
