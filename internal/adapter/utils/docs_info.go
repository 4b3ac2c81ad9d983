// Package utils holds the HTTP plumbing shared by the server: router, ids and
// URL params.
package utils

//local dependencies
//docker run -p 6379:6379 -d redis
//docker run -p 6333:6333 -p 6334:6334 -v vectorDBData:/qdrant/storage qdrant/qdrant
//docker run -p 8080:8080 -e DEFAULT_VECTORIZER_MODULE=none cr.weaviate.io/semitechnologies/weaviate

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
