// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

/*
Package catalog provides item catalog backends for the recommendation engine.

Every backend implements recommend.CatalogProvider: given a section kind and a
candidate limit it returns unranked items, leaving ordering to the engine.

# Backends

  - GeneratorProvider: a seeded synthetic catalog for demos and load tests
  - FileProvider: a static YAML or JSON fixture loaded at startup
  - HTTPProvider: an upstream catalog service, rate limited and protected
    by a circuit breaker

Use New to build the backend selected by Config.

# Upstream Protocol

HTTPProvider issues

	GET {base_url}/candidates?kind=<kind>&limit=<n>

and expects a JSON body of the form {"items": [...]} where each item uses the
recommend.Item JSON field names. Responses other than 200 are errors.
*/
package catalog
