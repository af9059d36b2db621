// Package component runs the server's long-lived infrastructure: the HTTP
// listener, the run event hub and the telemetry exporters. A Registry
// starts them in order at boot and stops them in reverse at shutdown;
// Describable and RouteProvider feed the startup banner.
package component
