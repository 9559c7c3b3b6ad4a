// Package appconfig loads process settings for the sessiond binaries from
// the environment (and an optional .env file) and builds their logger.
package appconfig
