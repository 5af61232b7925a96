package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"token-indexer-sol/pkg/logger"
)

// DBExecutor pgxpool.Pool / pgx.Conn 均满足
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBProgressStore 管理 slot 的 DB 存储
// 写入用于持久记录进度（含被回滚的 slot），服务恢复后可用
type DBProgressStore struct {
	db DBExecutor
}

func NewDBProgressStore(db DBExecutor) *DBProgressStore {
	return &DBProgressStore{db: db}
}

// CheckSlotStatus 查询某 slot 的状态，不存在时返回 SlotUnknown
func (d *DBProgressStore) CheckSlotStatus(ctx context.Context, slot uint64) (SlotStatus, error) {
	var status int
	err := d.db.QueryRow(ctx, `SELECT status FROM progress_slot WHERE slot = $1`, int64(slot)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return SlotUnknown, nil
	}
	if err != nil {
		return SlotUnknown, fmt.Errorf("check slot status error: %w", err)
	}
	return SlotStatus(status), nil
}

// LatestSlot 返回已处理的最大 slot
func (d *DBProgressStore) LatestSlot(ctx context.Context) (uint64, bool, error) {
	var latest *int64
	err := d.db.QueryRow(ctx,
		`SELECT MAX(slot) FROM progress_slot WHERE status = $1`, int(SlotProcessed)).Scan(&latest)
	if err != nil {
		return 0, false, fmt.Errorf("fetch latest slot failed: %w", err)
	}
	if latest == nil {
		return 0, false, nil
	}
	return uint64(*latest), true, nil
}

// BatchUpsertSlots 批量写入 slot 记录，按 batchLimit 分批
func (d *DBProgressStore) BatchUpsertSlots(ctx context.Context, slots []*SlotRecord) error {
	if len(slots) == 0 {
		return nil
	}

	const batchLimit = 1000
	for i := 0; i < len(slots); i += batchLimit {
		end := min(i+batchLimit, len(slots))
		query, args := buildUpsertQuery(slots[i:end])
		if _, err := d.db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %d slots failed: %w", end-i, err)
		}
	}
	return nil
}

// buildUpsertQuery 若主键 slot 冲突，更新 hash、status 和 updated_at
func buildUpsertQuery(slots []*SlotRecord) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO progress_slot (slot, block_hash, block_time, status, updated_at) VALUES `)
	args := make([]any, 0, len(slots)*4)
	for i, s := range slots {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,CURRENT_TIMESTAMP)", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, int64(s.Slot), s.BlockHash, s.BlockTime, int(s.Status))
	}
	sb.WriteString(` ON CONFLICT (slot) DO UPDATE SET
	block_hash = EXCLUDED.block_hash,
	status = EXCLUDED.status,
	updated_at = CURRENT_TIMESTAMP`)
	return sb.String(), args
}

// DeleteOldSlots 删除 retainSlots 之前的历史记录，分批删除防止长事务
func (d *DBProgressStore) DeleteOldSlots(ctx context.Context, retainSlots uint64) error {
	latest, ok, err := d.LatestSlot(ctx)
	if err != nil || !ok || latest <= retainSlots {
		return err
	}
	safeSlot := latest - retainSlots

	const batchSize = 1000
	for {
		tag, err := d.db.Exec(ctx,
			`DELETE FROM progress_slot WHERE slot IN (SELECT slot FROM progress_slot WHERE slot < $1 ORDER BY slot LIMIT $2)`,
			int64(safeSlot), batchSize,
		)
		if err != nil {
			return fmt.Errorf("delete old slots failed: %w", err)
		}
		n := tag.RowsAffected()
		if n == 0 {
			return nil
		}
		logger.Infof("[progress GC] deleted %d old progress rows below slot %d", n, safeSlot)
	}
}
