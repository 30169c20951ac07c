// Package mcp implements the Model Context Protocol (MCP) server for coderag.
//
// The server exposes three tools to AI coding assistants:
//   - ingest_repository: clone a repository or read a local tree and index it
//   - search_code: hybrid keyword and semantic search over everything ingested
//   - get_status: corpus and index statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only. Logs go to stderr.
//
// # Basic Usage
//
//	coderag serve
//
// # Tool: ingest_repository
//
//	Request:
//	{
//	  "name": "ingest_repository",
//	  "arguments": {
//	    "url": "https://github.com/acme/widgets.git",
//	    "languages": ["GO", "PYTHON"]
//	  }
//	}
//
//	Response:
//	{
//	  "source": "https://github.com/acme/widgets.git",
//	  "total_files": 212,
//	  "total_chunks": 1480,
//	  "per_tag": {"GO": {"files": 180, "chunks": 1302}, "PYTHON": {...}},
//	  "skipped": [{"path": "logo.png", "reason": "unknown language"}],
//	  "embedded": 1480,
//	  "embed_dropped": 0
//	}
//
// Pass "path" (absolute) instead of "url" to ingest a local directory.
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "query": "where are refresh tokens rotated",
//	    "top_k": 5,
//	    "dense_weight": 0.7
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "chunk_id": "9f2c...",
//	      "score": 0.81,
//	      "sparse_score": 0.62,
//	      "dense_score": 0.93,
//	      "path": "internal/auth/token.go",
//	      "language": "GO",
//	      "locator": {"start_line": 40, "end_line": 78},
//	      "text": "func (s *Service) Rotate(...) { ... }"
//	    }
//	  ],
//	  "degraded": false
//	}
//
// When semantic search is unavailable the response is built from keyword
// matches alone, "degraded" is true and "warnings" says why.
//
// # Error Codes
//
//   - -32602: invalid params (bad top_k, weights, path, url or languages)
//   - -32603: internal error (both indexes failed, storage errors)
//   - -32001: repository could not be cloned
//   - -32002: another ingestion is in progress
//   - -32004: empty query
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "coderag": {
//	      "command": "/usr/local/bin/coderag",
//	      "args": ["serve"],
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
