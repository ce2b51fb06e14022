// Package services provides the business-logic layer between the HTTP
// transport and the license engine. Services translate domain errors into
// the API error taxonomy and shape responses; they hold no state of their
// own.
package services
