package mysql

import (
	"context"
	"database/sql"
	"errors"

	"auction-marketplace/internal/domain"
)

// MySQLProxyBidRepository keeps one max-bid row per (auction, bidder),
// enforced by the table's composite primary key.
type MySQLProxyBidRepository struct {
	db *sql.DB
}

func NewMySQLProxyBidRepository(db *sql.DB) *MySQLProxyBidRepository {
	return &MySQLProxyBidRepository{db: db}
}

func (r *MySQLProxyBidRepository) GetProxyBid(ctx context.Context, auctionID, bidderID string) (*domain.ProxyBid, error) {
	query := `
        SELECT auction_id, bidder_id, bidder_username, max_bid, submission_time
        FROM proxy_bids
        WHERE auction_id = ? AND bidder_id = ?
    `

	var bid domain.ProxyBid
	err := r.db.QueryRowContext(ctx, query, auctionID, bidderID).Scan(
		&bid.AuctionID, &bid.BidderID, &bid.BidderUsername, &bid.MaxBid, &bid.SubmissionTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

func (r *MySQLProxyBidRepository) UpsertProxyBid(ctx context.Context, bid *domain.ProxyBid) error {
	query := `
        INSERT INTO proxy_bids (auction_id, bidder_id, bidder_username, max_bid, submission_time)
        VALUES (?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            bidder_username = VALUES(bidder_username),
            max_bid = VALUES(max_bid),
            submission_time = VALUES(submission_time)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.AuctionID, bid.BidderID, bid.BidderUsername, bid.MaxBid, bid.SubmissionTime)
	return err
}

// GetProxyBids returns the auction's proxy bids ranked for resolution: max
// bid descending, ties to the earliest submission.
func (r *MySQLProxyBidRepository) GetProxyBids(ctx context.Context, auctionID string) ([]*domain.ProxyBid, error) {
	query := `
        SELECT auction_id, bidder_id, bidder_username, max_bid, submission_time
        FROM proxy_bids
        WHERE auction_id = ?
        ORDER BY max_bid DESC, submission_time ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.ProxyBid
	for rows.Next() {
		var bid domain.ProxyBid
		err := rows.Scan(&bid.AuctionID, &bid.BidderID, &bid.BidderUsername,
			&bid.MaxBid, &bid.SubmissionTime)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}
