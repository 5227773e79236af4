package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"auction-marketplace/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

const auctionColumns = `id, seller_id, seller_username, product_id, title, image_url,
        category_ids, auction_type, start_price, reserve_price,
        current_bid, current_increment, highest_bidder_id, highest_bidder_username, bid_count,
        start_time, end_time, actual_end_time, status, reserve_met,
        winner_id, winning_bid, sold_by_seller, created_at, updated_at`

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	categories, err := json.Marshal(auction.CategoryIDs)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		auction.ID, auction.SellerID, auction.SellerUsername,
		auction.ProductID, auction.Title, auction.ImageURL,
		string(categories), string(auction.Type),
		auction.StartPrice, nullFloat(auction.ReservePrice),
		nullFloat(auction.CurrentBid), auction.CurrentIncrement,
		nullString(auction.HighestBidderID), auction.HighestBidderUsername, auction.BidCount,
		auction.StartTime, auction.EndTime, nullTime(auction),
		int(auction.Status), auction.ReserveMet,
		nullString(auction.WinnerID), nullFloat(auction.WinningBid), auction.SoldBySeller,
		auction.CreatedAt, auction.UpdatedAt)
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`
	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
		}
		return nil, err
	}
	return auction, nil
}

// UpdateAuction writes the full mutable state of the aggregate. Callers hold
// the per-auction lock, so no optimistic version check is needed here.
func (r *MySQLAuctionRepository) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions SET
            current_bid = ?, current_increment = ?, highest_bidder_id = ?,
            highest_bidder_username = ?, bid_count = ?, end_time = ?,
            actual_end_time = ?, status = ?, reserve_met = ?,
            winner_id = ?, winning_bid = ?, sold_by_seller = ?, updated_at = ?
        WHERE id = ?
    `
	result, err := r.db.ExecContext(ctx, query,
		nullFloat(auction.CurrentBid), auction.CurrentIncrement, nullString(auction.HighestBidderID),
		auction.HighestBidderUsername, auction.BidCount, auction.EndTime,
		nullTime(auction), int(auction.Status), auction.ReserveMet,
		nullString(auction.WinnerID), nullFloat(auction.WinningBid), auction.SoldBySeller, auction.UpdatedAt,
		auction.ID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("auction %s: %w", auction.ID, domain.ErrAuctionNotFound)
	}
	return nil
}

func (r *MySQLAuctionRepository) GetActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = ?`

	rows, err := r.db.QueryContext(ctx, query, int(domain.AuctionActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var (
		auction       domain.Auction
		categories    string
		auctionType   string
		status        int
		reservePrice  sql.NullFloat64
		currentBid    sql.NullFloat64
		winningBid    sql.NullFloat64
		highestBidder sql.NullString
		winnerID      sql.NullString
		actualEnd     sql.NullTime
	)

	err := row.Scan(
		&auction.ID, &auction.SellerID, &auction.SellerUsername,
		&auction.ProductID, &auction.Title, &auction.ImageURL,
		&categories, &auctionType,
		&auction.StartPrice, &reservePrice,
		&currentBid, &auction.CurrentIncrement, &highestBidder, &auction.HighestBidderUsername, &auction.BidCount,
		&auction.StartTime, &auction.EndTime, &actualEnd,
		&status, &auction.ReserveMet,
		&winnerID, &winningBid, &auction.SoldBySeller,
		&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if categories != "" {
		if err := json.Unmarshal([]byte(categories), &auction.CategoryIDs); err != nil {
			return nil, err
		}
	}
	auction.Type = domain.AuctionType(auctionType)
	auction.Status = domain.AuctionStatus(status)
	auction.ReservePrice = reservePrice.Float64
	auction.CurrentBid = currentBid.Float64
	auction.WinningBid = winningBid.Float64
	auction.HighestBidderID = highestBidder.String
	auction.WinnerID = winnerID.String
	if actualEnd.Valid {
		auction.ActualEndTime = actualEnd.Time
	}
	return &auction, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: strings.TrimSpace(v) != ""}
}

func nullTime(auction *domain.Auction) sql.NullTime {
	return sql.NullTime{Time: auction.ActualEndTime, Valid: !auction.ActualEndTime.IsZero()}
}
