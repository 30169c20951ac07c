// Package config loads runtime settings.
//
// Values are layered, later layers winning:
//
//  1. Default()
//  2. a YAML file, named explicitly or by CODERAG_CONFIG
//  3. environment variables, including those from a .env file
//
// Example file:
//
//	data_dir: ~/.coderag
//	embedding:
//	  provider: openai
//	  concurrency: 8
//	vector:
//	  backend: chroma
//	  chroma_url: http://localhost:8000
//	search:
//	  top_k: 10
//	  sparse_weight: 0.3
//	  dense_weight: 0.7
//
// API keys are never read from the file. Providers take them from
// OPENAI_API_KEY and JINA_API_KEY directly.
package config
