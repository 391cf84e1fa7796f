// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidRequest represents a malformed request payload.
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Survey errors
	CodeSurveyResponseOutOfRange Code = "SURVEY_RESPONSE_OUT_OF_RANGE"
	CodeSurveyUnknown            Code = "SURVEY_UNKNOWN"

	// Schema errors
	CodeSchemaUnknownModel Code = "SCHEMA_UNKNOWN_MODEL"

	// Trait errors
	CodeTraitValueOutOfRange Code = "TRAIT_VALUE_OUT_OF_RANGE"

	// Run errors
	CodeRunInvalidPasses Code = "RUN_INVALID_PASSES"
	CodeRunUserIDEmpty   Code = "RUN_USER_ID_EMPTY"

	// Listing errors
	CodeListInvalidFilter Code = "LIST_INVALID_FILTER"

	// Comparison errors
	CodeCompareUserIDsEmpty Code = "COMPARE_USER_IDS_EMPTY"

	// Projection errors
	CodeProjectionTechniqueUnsupported Code = "PROJECTION_TECHNIQUE_UNSUPPORTED"
	CodeProjectionInvalidDims          Code = "PROJECTION_INVALID_DIMS"
	CodeProjectionInsufficientRuns     Code = "PROJECTION_INSUFFICIENT_RUNS"
	CodeProjectionUnknownFeature       Code = "PROJECTION_UNKNOWN_FEATURE"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Random/seed errors
	CodeSeedOutOfRange  Code = "SEED_OUT_OF_RANGE"
	CodeScenarioInvalid Code = "SCENARIO_INVALID"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeInvalidRequest,
		CodeSurveyResponseOutOfRange,
		CodeSurveyUnknown,
		CodeSchemaUnknownModel,
		CodeTraitValueOutOfRange,
		CodeRunInvalidPasses,
		CodeRunUserIDEmpty,
		CodeListInvalidFilter,
		CodeCompareUserIDsEmpty,
		CodeProjectionTechniqueUnsupported,
		CodeProjectionInvalidDims,
		CodeProjectionInsufficientRuns,
		CodeProjectionUnknownFeature,
		CodeSeedOutOfRange,
		CodeScenarioInvalid:
		return http.StatusBadRequest

	case CodeNotFound:
		return http.StatusNotFound

	case CodeAlreadyExists:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
