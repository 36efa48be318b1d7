// Package handler contains HTTP handlers grouped by domain in subpackages.
//
// The root package also holds the request validators shared by the subpackages,
// and keeps `swag init --dir ./internal/handler` happy.
package handler
