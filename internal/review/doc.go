// Package review defines the structured answer a model returns for a pull
// request and turns raw model text into that answer.
//
// The Output type holds inline comments, generated tests, and generated
// docs. Schema checks a decoded Output with go-playground/validator plus the
// configured comment cap. Validator runs three stages in order: a direct
// JSON parse, a parse of any fenced code block, and one repair round-trip
// through the model whose reply must parse directly. When all three fail the
// caller gets a *SchemaValidationError listing each stage's reason.
//
// prompt.go assembles the conversation sent to the model: fixed reviewer
// instructions, an optional README excerpt, an optional maintainer addendum,
// and the diff message.
package review
