// Package provider defines the adapter boundary between the gateway and
// the upstream LLM backends. Each adapter owns its backend's auth and
// wire format; nothing outside an adapter may depend on a provider's
// native request or response shape.
package provider
