// Package apiclient implements the HTTP client for the relay's read API.
package apiclient
