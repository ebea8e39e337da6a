// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// SortBy selects the ordering of search results.
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByCreatedAt SortBy = "createdAt"
	SortByUpdatedAt SortBy = "updatedAt"
	SortByType      SortBy = "type"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SearchOptions parameterise a full-text query.
type SearchOptions struct {
	// Query is tokenised; every token must prefix-match indexed content.
	// An empty query matches every indexed document.
	Query string

	// Types keeps only documents of one of the listed types.
	Types []string

	// Tags keeps only documents carrying every listed tag.
	Tags []string

	SortBy    SortBy
	SortOrder SortOrder

	// Limit <= 0 means no limit.
	Limit  int
	Offset int
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Document   *Document `json:"document"`
	Score      float64   `json:"score"`
	Highlights []string  `json:"highlights"`
}
