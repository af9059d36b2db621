// Package rest provides a JSON client built on httpclient, used by the
// model backends and the command-line client:
//
//	client, err := rest.New(httpclient.Config{BaseURL: "http://localhost:8080"})
//
//	snap, err := rest.Post[workflow.Snapshot](ctx, client, "/api/execute-workflow", graph)
//	list, err := rest.Get[[]workflow.Summary](ctx, client, "/api/executions")
//
// Error statuses are returned as *httpclient.Error; when the body still
// decodes into the target type the response is returned alongside it.
package rest
