// Package app assembles relayd: a relay registry behind the HTTP API,
// Prometheus metrics on a separate listener and a Redis pub/sub ingress, all
// configured from the environment and run under one errgroup.
package app
