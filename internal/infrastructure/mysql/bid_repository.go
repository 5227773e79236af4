package mysql

import (
	"context"
	"database/sql"

	"auction-marketplace/internal/domain"
)

// MySQLBidRepository persists the append-only visible-bid ledger. Rows are
// never updated or deleted.
type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) AppendBid(ctx context.Context, bid *domain.VisibleBid) error {
	query := `
        INSERT INTO visible_bids (id, auction_id, bidder_id, bidder_username, amount, bid_time, system_generated)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.BidderID, bid.BidderUsername,
		bid.Amount, bid.BidTime, bid.SystemGenerated)
	return err
}

func (r *MySQLBidRepository) GetBidHistory(ctx context.Context, auctionID string) ([]*domain.VisibleBid, error) {
	query := `
        SELECT id, auction_id, bidder_id, bidder_username, amount, bid_time, system_generated
        FROM visible_bids
        WHERE auction_id = ?
        ORDER BY bid_time ASC, id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.VisibleBid
	for rows.Next() {
		var bid domain.VisibleBid
		err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.BidderUsername,
			&bid.Amount, &bid.BidTime, &bid.SystemGenerated)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}
