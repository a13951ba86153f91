// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/migrations"
)

const kvTable = "kv_store"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type sqlStorage struct {
	db      *DB
	builder sq.StatementBuilderType
	backoff func() retry.Backoff
	logger  *logger.Logger
}

// NewSQLStorage returns a KVStorage on top of the kv_store table. The
// placeholder format follows the connection's dialect. Calls failing with a
// retryable driver error are retried with exponential backoff.
func NewSQLStorage(db *DB, log *logger.Logger) KVStorage {
	var placeholder sq.PlaceholderFormat = sq.Question
	if db.dialect == migrations.DialectPostgres {
		placeholder = sq.Dollar
	}

	return &sqlStorage{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
		},
		logger: log,
	}
}

func (s *sqlStorage) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.builder.
		Select("entry_value").
		From(kvTable).
		Where(sq.Eq{"entry_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var value []byte
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		s.logger.Err(err).Str("func", "sqlStorage.Get").Str("key", key).Msg("failed to query value")
		return nil, fmt.Errorf("%w: %w: %w", ErrStorageUnavailable, ErrExecutingQuery, err)
	}

	return value, nil
}

func (s *sqlStorage) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := s.builder.
		Insert(kvTable).
		Columns("entry_key", "entry_value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return s.exec(ctx, "sqlStorage.Set", query, args)
}

func (s *sqlStorage) Remove(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete(kvTable).
		Where(sq.Eq{"entry_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return s.exec(ctx, "sqlStorage.Remove", query, args)
}

func (s *sqlStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	q := s.builder.Select("entry_key").From(kvTable).OrderBy("entry_key")
	if prefix != "" {
		q = q.Where(prefixCondition(prefix))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var keys []string
	err = s.withRetry(ctx, func(ctx context.Context) error {
		keys = keys[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key string
			if err = rows.Scan(&key); err != nil {
				return fmt.Errorf("%w: %w", ErrScanningRows, err)
			}
			keys = append(keys, key)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Err(err).Str("func", "sqlStorage.Keys").Str("prefix", prefix).Msg("failed to list keys")
		return nil, fmt.Errorf("%w: %w: %w", ErrStorageUnavailable, ErrExecutingQuery, err)
	}

	return keys, nil
}

func (s *sqlStorage) Clear(ctx context.Context, prefix string) error {
	q := s.builder.Delete(kvTable)
	if prefix != "" {
		q = q.Where(prefixCondition(prefix))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return s.exec(ctx, "sqlStorage.Clear", query, args)
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

func (s *sqlStorage) exec(ctx context.Context, fn, query string, args []any) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		s.logger.Err(err).Str("func", fn).Msg("failed to execute statement")
		return fmt.Errorf("%w: %w: %w", ErrStorageUnavailable, ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqlStorage) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && s.db.errorClassificator != nil && s.db.errorClassificator.Classify(err) == Retryable {
			return retry.RetryableError(err)
		}
		return err
	})
}

func prefixCondition(prefix string) sq.Sqlizer {
	return sq.Expr(`entry_key LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%")
}
