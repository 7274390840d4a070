// Package kbsearch is a thin HTTP client for the kbsearch API.
//
// Usage:
//
//	client := kbsearch.New("http://localhost:8080", kbsearch.WithAPIKey("secret"))
//	resp, err := client.Search(ctx, kbsearch.SearchRequest{Query: "pricing tiers"})
package kbsearch
