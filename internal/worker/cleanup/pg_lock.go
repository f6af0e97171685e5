package cleanup

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
)

// DefaultAdvisoryLockKey はクリーンアップ用のPostgreSQLアドバイザリロックのキー。
const DefaultAdvisoryLockKey int64 = 0x61636374636c6e // "acctcln"

// PostgresLocker はPostgreSQLのセッションレベルのアドバイザリロックで
// 同じデータベースを使う全プロセス間の多重実行を防ぐLocker。
// ロックはセッションに紐づくため、取得から解放まで同じ接続を保持する。
// プロセスが異常終了した場合は接続の切断とともに解放される。
type PostgresLocker struct {
	db  *sql.DB
	key int64
}

// NewPostgresLocker は新しいPostgresLockerを生成する。
// keyが0の場合はDefaultAdvisoryLockKeyを使用する。
func NewPostgresLocker(db *sql.DB, key int64) *PostgresLocker {
	if key == 0 {
		key = DefaultAdvisoryLockKey
	}
	return &PostgresLocker{db: db, key: key}
}

// TryLock はpg_try_advisory_lockでロックを試行する。
func (l *PostgresLocker) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire cleanup lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("failed to acquire cleanup lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		defer conn.Close()
		var released bool
		if err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, l.key).Scan(&released); err != nil {
			// ErrBadConnを返すと接続はプールに戻らず破棄され、セッションとともにロックも解放される
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			return fmt.Errorf("failed to release cleanup lock: %w", err)
		}
		if !released {
			return fmt.Errorf("failed to release cleanup lock: lock %d was not held", l.key)
		}
		return nil
	}, true, nil
}
