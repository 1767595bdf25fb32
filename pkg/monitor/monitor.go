package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 失败阶段
const (
	StageComplete = "complete"
	StageSign     = "sign"
	StageSend     = "send"
	StageReceipt  = "receipt"
)

var (
	// TxSentTotal 节点接受的交易数量
	TxSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evmkit_tx_sent_total",
		Help: "The total number of transactions accepted by the node",
	}, []string{"network"})

	// TxFailedTotal 按阶段统计失败次数
	TxFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evmkit_tx_failed_total",
		Help: "The total number of failed transactions by stage",
	}, []string{"network", "stage"})

	// ReceiptWaitSeconds 等待回执耗时
	ReceiptWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evmkit_receipt_wait_seconds",
		Help:    "Time spent waiting for transaction receipts",
		Buckets: []float64{1, 3, 5, 10, 15, 30, 60, 120}, // 关键耗时桶
	}, []string{"network"})

	// FeeQuoteWei 最近一次费用报价 (kind: gas_price / priority_fee / base_fee / max_fee)
	FeeQuoteWei = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evmkit_fee_quote_wei",
		Help: "Last fee quote in wei",
	}, []string{"network", "kind"})
)

func TxFailed(network, stage string) {
	TxFailedTotal.WithLabelValues(network, stage).Inc()
}
