// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package config loads the culturefeed server configuration.
//
// Values are layered with koanf, later layers winning:
//
//  1. built-in defaults (defaultConfig)
//  2. a YAML file from CONFIG_PATH or the first of DefaultConfigPaths
//  3. environment variables listed in envMappings
//
// Unlisted environment variables are ignored. List-valued variables such as
// CORS_ORIGINS are comma separated. The feed section of the file maps onto
// recommend.Config through EngineConfig.
//
// Example config.yaml:
//
//	server:
//	  port: 8080
//	persistence:
//	  driver: badger
//	  path: /data/culturefeed
//	catalog:
//	  source: http
//	  base_url: https://catalog.internal
//	feed:
//	  sections:
//	    - {id: recommended, kind: recommended, limit: 20}
//	    - {id: kpop, kind: similar, limit: 8}
//	schedule:
//	  refresh:
//	    trending: "*/5 * * * *"
package config
