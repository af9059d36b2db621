package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/flowrun/httpclient"
	"github.com/kbukum/flowrun/workflow"
)

// Doer sends an HTTP request. *httpclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Curl performs the request described by the node's method, url, headers
// and body. A response with any status is a result; transport errors,
// timeouts and bad parameters fail the node.
func Curl(client Doer) workflow.Executor {
	return workflow.ExecutorFunc(func(ctx context.Context, node workflow.Node, _ workflow.Input) (any, error) {
		req, err := curlRequest(node.Params)
		if err != nil {
			return nil, workflow.FailWith(err, "HTTP request failed")
		}

		resp, err := client.Do(ctx, req)
		if err != nil && !(resp != nil && httpclient.IsStatusError(err)) {
			return nil, workflow.FailWith(err, "HTTP request failed")
		}
		return toResult(resp), nil
	})
}

func curlRequest(p workflow.Params) (httpclient.Request, error) {
	target := strings.TrimSpace(p.String("url"))
	if target == "" {
		return httpclient.Request{}, fmt.Errorf("url is required")
	}
	req := httpclient.Request{
		Method: strings.ToUpper(p.StringOr("method", http.MethodGet)),
		Path:   target,
	}

	headers, err := curlHeaders(p)
	if err != nil {
		return req, err
	}
	req.Headers = headers

	body, ok := p.Raw("body")
	if !ok {
		return req, nil
	}
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		req.Body, err = requestBody(body)
		if err != nil {
			return req, err
		}
		if s, isText := body.(string); isText && req.Headers["Content-Type"] == "" {
			if req.Headers == nil {
				req.Headers = make(map[string]string, 1)
			}
			if json.Valid([]byte(s)) {
				req.Headers["Content-Type"] = "application/json"
			} else {
				req.Headers["Content-Type"] = "text/plain"
			}
		}
	default:
		req.RawQuery, err = queryString(body)
		if err != nil {
			return req, err
		}
	}
	return req, nil
}

// curlHeaders accepts a JSON object string or a map.
func curlHeaders(p workflow.Params) (map[string]string, error) {
	raw, ok := p.Raw("headers")
	if !ok {
		return nil, nil
	}
	var m map[string]any
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("headers must be a JSON object: %w", err)
		}
	case map[string]any:
		m = v
	case map[string]string:
		return v, nil
	default:
		return nil, fmt.Errorf("headers must be a JSON object, got %T", raw)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Stringify(v)
	}
	return out, nil
}

// requestBody sends text verbatim and encodes structured bodies as JSON.
func requestBody(body any) (any, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return json.RawMessage(data), nil
	}
}

// queryString turns a body into query parameters for methods without a
// request body.
func queryString(body any) (string, error) {
	switch v := body.(type) {
	case string:
		return strings.TrimPrefix(v, "?"), nil
	case map[string]any:
		q := url.Values{}
		for k, val := range v {
			q.Set(k, Stringify(val))
		}
		return q.Encode(), nil
	default:
		return "", fmt.Errorf("body of type %T cannot be sent as query parameters", body)
	}
}

// toResult shapes a response as {status_code, data, headers}. JSON bodies
// are decoded; anything else is returned as text.
func toResult(resp *httpclient.Response) map[string]any {
	headers := make(map[string]any, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[k] = v
	}
	var data any = string(resp.Body)
	if strings.HasPrefix(resp.Headers["Content-Type"], "application/json") {
		var decoded any
		if err := json.Unmarshal(resp.Body, &decoded); err == nil {
			data = decoded
		}
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"data":        data,
		"headers":     headers,
	}
}
