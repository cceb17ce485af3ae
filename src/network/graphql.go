package network

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
)

// GraphQLRequest is the standard GraphQL-over-HTTP request body.
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLError is one entry of a response's top-level errors list.
type GraphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// -----------------------------------------------------------------------------

// GraphQLClient posts queries to a single endpoint through an INetworkManager.
type GraphQLClient struct {
	endpoint string
	headers  map[string]string
	net      interfaces.INetworkManager
}

// -----------------------------------------------------------------------------

func NewGraphQLClient(net interfaces.INetworkManager, endpoint string, headers map[string]string) *GraphQLClient {
	return &GraphQLClient{endpoint: endpoint, headers: headers, net: net}
}

// -----------------------------------------------------------------------------

// Do runs the request and decodes the data member into out.
// A non-empty errors list yields an UpstreamQueryError carrying hint.
func (c *GraphQLClient) Do(ctx context.Context, req GraphQLRequest, hint string, out interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	body, err := c.net.Post(ctx, c.endpoint, c.headers, payload)
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return helpers.NewUpstreamQueryError("decode graphql response", err)
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		message := hint
		if message == "" {
			message = "graphql query failed"
		}
		return helpers.NewUpstreamQueryError(message, fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}

	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return helpers.NewUpstreamQueryError("decode graphql data", err)
	}
	return nil
}
