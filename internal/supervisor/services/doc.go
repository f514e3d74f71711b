// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package services adapts culturefeed components to suture.Service.
//
// Each service blocks in Serve until its context is canceled and implements
// fmt.Stringer so supervisor events name it:
//
//   - APIService serves the feed API and drains in-flight requests on stop.
//   - RefreshService refreshes sections of live sessions on cron schedules
//     and evicts idle sessions.
//   - FeedbackConsumerService drains the in-process feedback event topic.
package services
