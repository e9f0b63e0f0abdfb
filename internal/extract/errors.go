package extract

import "errors"

// Extraction failures are terminal: no stage retries internally, each error
// maps to exactly one failure class for the caller to act on.
var (
	// ErrSchemaNotFound means the requested schema name is not registered.
	ErrSchemaNotFound = errors.New("schema definition not found")

	// ErrNoChunks means the document is absent from the knowledge base or
	// yielded no retrievable content.
	ErrNoChunks = errors.New("no document content available for extraction")

	// ErrRetrieval is an infrastructure fault in the retrieval path.
	ErrRetrieval = errors.New("context retrieval failed")

	// ErrGeneration covers prompt construction and model invocation faults.
	ErrGeneration = errors.New("model generation failed")

	// ErrParse means the model output was not the expected JSON shape.
	ErrParse = errors.New("model output could not be parsed")

	// ErrValidation means the parsed output violated the schema.
	ErrValidation = errors.New("extracted data failed schema validation")
)
