// Package api serves job submission, job inspection and search over HTTP
// using echo. Errors are returned as {"error": "..."}.
package api
