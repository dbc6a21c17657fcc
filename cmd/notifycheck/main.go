package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"barter_market/internal/pkg/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// 排查通知投递问题的诊断工具：
//  1. seller_id 为空的订单（通知无法路由到卖家）
//  2. 状态变更后 recipient 与订单双方都不匹配的通知
//  3. 堆积超过阈值的未读通知
func main() {
	var (
		since  = flag.Duration("since", 7*24*time.Hour, "只检查该时间窗口内创建的数据")
		unread = flag.Int("unread-threshold", 200, "单用户未读通知告警阈值")
	)
	flag.Parse()

	config.LoadConfig()
	cfg := config.GlobalConfig.Database
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().Add(-*since)
	problems := 0

	problems += checkOrphanOrders(db, cutoff)
	problems += checkMisroutedNotifications(db, cutoff)
	problems += checkUnreadBacklog(db, *unread)

	if problems > 0 {
		fmt.Printf("\n%d problem(s) found\n", problems)
		os.Exit(1)
	}
	fmt.Println("no problems found")
}

type orphanOrder struct {
	ID        string    `db:"id"`
	OrderNo   string    `db:"order_no"`
	CreatedAt time.Time `db:"created_at"`
}

// seller_id 有 NOT NULL 约束，这里兜底检查历史脏数据
func checkOrphanOrders(db *sqlx.DB, cutoff time.Time) int {
	var orders []orphanOrder
	err := db.Select(&orders, `
		SELECT id, order_no, created_at
		FROM orders
		WHERE seller_id IS NULL AND created_at >= $1
		ORDER BY created_at DESC`, cutoff)
	if err != nil {
		log.Fatalf("orphan order query: %v", err)
	}

	for _, o := range orders {
		fmt.Printf("ORPHAN ORDER %s (%s) created %s: seller_id is NULL, seller notifications were dropped\n",
			o.OrderNo, o.ID, o.CreatedAt.Format(time.RFC3339))
	}
	return len(orders)
}

type misroutedNotification struct {
	ID          string `db:"id"`
	RecipientID string `db:"recipient_id"`
	OrderID     string `db:"order_id"`
	BuyerID     string `db:"buyer_id"`
	SellerID    string `db:"seller_id"`
}

// 订单类通知的 recipient 必须是买家或卖家之一
func checkMisroutedNotifications(db *sqlx.DB, cutoff time.Time) int {
	var rows []misroutedNotification
	err := db.Select(&rows, `
		SELECT n.id, n.recipient_id, o.id AS order_id, o.buyer_id, o.seller_id
		FROM notifications n
		JOIN orders o ON o.id = (n.payload->>'orderId')::uuid
		WHERE n.type IN ('new_order_received', 'order_status_update', 'payment_update')
		  AND n.created_at >= $1
		  AND n.recipient_id NOT IN (o.buyer_id, o.seller_id)`, cutoff)
	if err != nil {
		log.Fatalf("misrouted notification query: %v", err)
	}

	for _, r := range rows {
		fmt.Printf("MISROUTED NOTIFICATION %s: recipient %s is neither buyer %s nor seller %s of order %s\n",
			r.ID, r.RecipientID, r.BuyerID, r.SellerID, r.OrderID)
	}
	return len(rows)
}

type unreadBacklog struct {
	RecipientID string `db:"recipient_id"`
	Count       int    `db:"count"`
}

func checkUnreadBacklog(db *sqlx.DB, threshold int) int {
	var rows []unreadBacklog
	err := db.Select(&rows, `
		SELECT recipient_id, COUNT(*) AS count
		FROM notifications
		WHERE read_at IS NULL
		GROUP BY recipient_id
		HAVING COUNT(*) >= $1
		ORDER BY count DESC`, threshold)
	if err != nil {
		log.Fatalf("unread backlog query: %v", err)
	}

	for _, r := range rows {
		fmt.Printf("UNREAD BACKLOG user %s has %d unread notifications\n", r.RecipientID, r.Count)
	}
	return len(rows)
}
