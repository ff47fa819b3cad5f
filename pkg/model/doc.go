// Package model defines the form-builder schema entities: fields, validation
// rules, form schemas, and saved snapshots. The types here are plain data;
// editing operations live in pkg/builder, validator compilation in
// pkg/validation, and derived-value evaluation in pkg/derive.
package model
