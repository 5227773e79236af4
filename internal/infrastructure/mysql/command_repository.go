package mysql

import (
	"context"
	"database/sql"
	"time"

	"auction-marketplace/internal/domain"
)

// MySQLCommandRepository is the durable command table behind the lifecycle
// scheduler. run_at and scheduled_end use DATETIME(3), so staleness
// comparisons happen at millisecond precision.
type MySQLCommandRepository struct {
	db *sql.DB
}

func NewMySQLCommandRepository(db *sql.DB) *MySQLCommandRepository {
	return &MySQLCommandRepository{db: db}
}

func (r *MySQLCommandRepository) EnqueueCommand(ctx context.Context, cmd *domain.LifecycleCommand) error {
	query := `
        INSERT INTO lifecycle_commands (id, auction_id, command_type, run_at, scheduled_end, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	var scheduledEnd sql.NullTime
	if !cmd.ScheduledEnd.IsZero() {
		scheduledEnd = sql.NullTime{Time: cmd.ScheduledEnd, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		cmd.ID, cmd.AuctionID, string(cmd.Type),
		cmd.RunAt, scheduledEnd, string(cmd.Status), cmd.CreatedAt)
	return err
}

func (r *MySQLCommandRepository) GetDueCommands(ctx context.Context, before time.Time) ([]*domain.LifecycleCommand, error) {
	query := `
        SELECT id, auction_id, command_type, run_at, scheduled_end, status, created_at
        FROM lifecycle_commands
        WHERE status = 'pending' AND run_at <= ?
        ORDER BY run_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []*domain.LifecycleCommand
	for rows.Next() {
		var (
			cmd          domain.LifecycleCommand
			cmdType      string
			status       string
			scheduledEnd sql.NullTime
		)

		err := rows.Scan(&cmd.ID, &cmd.AuctionID, &cmdType,
			&cmd.RunAt, &scheduledEnd, &status, &cmd.CreatedAt)
		if err != nil {
			return nil, err
		}

		cmd.Type = domain.CommandType(cmdType)
		cmd.Status = domain.CommandStatus(status)
		if scheduledEnd.Valid {
			cmd.ScheduledEnd = scheduledEnd.Time
		}
		commands = append(commands, &cmd)
	}
	return commands, rows.Err()
}

func (r *MySQLCommandRepository) MarkCommand(ctx context.Context, commandID string, status domain.CommandStatus) error {
	query := `UPDATE lifecycle_commands SET status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(status), commandID)
	return err
}
