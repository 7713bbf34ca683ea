package store

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"schoolattend/internal/apperr"
)

// SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
)

var uniqueMessages = map[string]string{
	"schools_email_key":            "Email is already registered.",
	"teachers_school_email_key":    "Email is already registered.",
	"students_school_email_key":    "Email is already registered.",
	"classes_school_number_key":    "Class with this number already exists for this school.",
	"subjects_school_name_key":     "Subject with this name or codename already exists.",
	"subjects_school_codename_key": "Subject with this name or codename already exists.",
}

var referenceMessages = map[string]string{
	"students_class_fkey":     "Class not found.",
	"classes_attendee_fkey":   "Teacher not found.",
	"attendance_student_fkey": "Student not found.",
	"attendance_class_fkey":   "Class not found.",
	"attendance_subject_fkey": "Subject not found.",
}

// Translate maps a driver error to an apperr kind. notFound is the
// message used when the row is missing or belongs to another school.
func Translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(notFound)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return apperr.Unavailable("The database is not responding, try again.", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Unavailable("Request cancelled.", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			msg, ok := uniqueMessages[pgErr.ConstraintName]
			if !ok {
				msg = "Record already exists."
			}
			return apperr.Duplicate(msg, err)
		case codeForeignKeyViolation:
			msg, ok := referenceMessages[pgErr.ConstraintName]
			if !ok {
				msg = "Referenced record not found."
			}
			return apperr.NotFound(msg)
		case codeCheckViolation:
			return apperr.Validation("A field has an invalid value.")
		case codeInvalidText:
			return apperr.NotFound(notFound)
		}
	}
	return apperr.Internal(err)
}

// TranslateDelete is Translate for deletes, where a foreign key violation
// means other rows still reference the target.
func TranslateDelete(err error, notFound, inUse string) error {
	if IsForeignKeyViolation(err) {
		return apperr.Conflict(inUse, err)
	}
	return Translate(err, notFound)
}

// IsForeignKeyViolation reports whether err is a Postgres 23503.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
