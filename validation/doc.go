// Package validation turns struct-tag and ad-hoc checks into *errors.AppError
// values with per-field details. Struct checks use go-playground/validator;
// the fluent Validator covers inputs that arrive outside a struct, such as
// multipart form fields.
package validation
