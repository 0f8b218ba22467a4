// Package config loads allocator settings from YAML.
//
// Sizes accept plain integers or human-readable strings:
//
//	capacity: 64MiB
//	codec: go-json+zstd
//	log:
//	  level: debug
//	  format: json
//	resources:
//	  memory_limit: 1GiB
//	  max_concurrent_exports: 2
//	  io_limit_per_sec: 8MiB
//	export:
//	  store: s3
//	  bucket: reports
//	  prefix: offheap/
//
// Options turns a Config into offheap options; Export.OpenStore builds the
// blob store that reports are written to.
package config
