// Package config loads citare settings from a YAML file, a .env file and
// CITARE_* environment variables, and turns them into Database options.
//
// A minimal file:
//
//	storage:
//	  db_path: /var/lib/citare/db
//	ai:
//	  provider: openai
//	  model: text-embedding-3-small
//	jobs:
//	  retry_count: 2
package config
