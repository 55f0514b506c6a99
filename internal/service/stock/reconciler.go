package stock

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	phaseValidate = "validate"
	phaseCommit   = "commit"
	phaseRestore  = "restore"
)

// stockWrite — одна запланированная запись стока. План живёт только в
// рамках одного вызова reconciliation и никогда не персистится.
type stockWrite struct {
	productID string
	variantID string
	newStock  int32
	prevStock int32
}

// Reconciler выполняет двухфазную validate-then-commit мутацию стока и её
// обратную операцию restore. Это единственный путь записи в Inventory Gateway.
type Reconciler struct {
	gateway  domain.InventoryGateway
	notifier domain.NotificationSink
	logger   *log.Entry
	metrics  *metrics.EngineMetrics
}

// NewReconciler создаёт рабочий экземпляр reconciler.
func NewReconciler(gateway domain.InventoryGateway, notifier domain.NotificationSink, logger *log.Entry) *Reconciler {
	if logger == nil {
		logger = log.New().WithField("component", "stock-reconciler")
	}
	return &Reconciler{
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics.NewEngineMetrics(),
	}
}

// NewReconcilerWithoutMetrics создаёт reconciler без метрик (для тестов).
func NewReconcilerWithoutMetrics(gateway domain.InventoryGateway, notifier domain.NotificationSink, logger *log.Entry) *Reconciler {
	if logger == nil {
		logger = log.New().WithField("component", "stock-reconciler")
	}
	return &Reconciler{
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
	}
}

// Validate выполняет только фазу валидации: читает текущий сток по каждой
// позиции и собирает все нехватки. Записей на склад не происходит.
func (r *Reconciler) Validate(items []domain.OrderItem) error {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordReconcilePhase(phaseValidate, time.Since(start))
		}
	}()

	_, shortfalls, err := r.plan(items)
	if err != nil {
		return err
	}
	if len(shortfalls) > 0 {
		if r.metrics != nil {
			r.metrics.RecordShortfalls(len(shortfalls))
		}
		return &domain.InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

// ValidateAndCommit выполняет обе фазы. Все чтения и проверки нехватки
// происходят до первой записи: провалившаяся позиция не может оставить
// частично списанный сток. Ошибка записи в фазе commit компенсируется
// откатом уже применённых записей и возвращается как ErrPersistenceFailure.
func (r *Reconciler) ValidateAndCommit(items []domain.OrderItem) error {
	start := time.Now()
	writes, shortfalls, err := r.plan(items)
	if r.metrics != nil {
		r.metrics.RecordReconcilePhase(phaseValidate, time.Since(start))
	}
	if err != nil {
		return err
	}
	if len(shortfalls) > 0 {
		if r.metrics != nil {
			r.metrics.RecordShortfalls(len(shortfalls))
		}
		return &domain.InsufficientStockError{Shortfalls: shortfalls}
	}

	commitStart := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordReconcilePhase(phaseCommit, time.Since(commitStart))
		}
	}()

	for i, write := range writes {
		if err := r.apply(write); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"product_id": write.productID,
				"variant_id": write.variantID,
			}).Error("commit-phase stock write failed")
			r.rollback(writes[:i])
			r.notifyError(fmt.Sprintf("stock commit failed on product %s, applied writes rolled back", write.productID))
			return fmt.Errorf("%w: write stock for product %s: %v", domain.ErrPersistenceFailure, write.productID, err)
		}
	}

	if r.metrics != nil {
		r.metrics.RecordStockDebit()
	}
	return nil
}

// Restore возвращает qty каждой позиции обратно на склад. Best-effort:
// ошибка по одной позиции логируется и не мешает восстановлению остальных.
func (r *Reconciler) Restore(items []domain.OrderItem) {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordReconcilePhase(phaseRestore, time.Since(start))
		}
	}()

	for _, item := range items {
		if err := r.restoreItem(item); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"product_id": item.ProductID,
				"variant_id": item.VariantID,
				"qty":        item.Qty,
			}).Warn("restore failed for item")
			r.notifyWarning(fmt.Sprintf("stock restore failed for product %s: %v", item.ProductID, err))
			if r.metrics != nil {
				r.metrics.RecordRestoreItemFailure()
			}
		}
	}

	if r.metrics != nil {
		r.metrics.RecordStockRestore()
	}
}

// plan строит список записей стока для всех позиций. Возвращает либо полный
// план, либо полный список нехваток — никогда частичную смесь.
func (r *Reconciler) plan(items []domain.OrderItem) ([]stockWrite, []domain.Shortfall, error) {
	writes := make([]stockWrite, 0, len(items))
	var shortfalls []domain.Shortfall

	for _, item := range items {
		product, err := r.gateway.GetProduct(item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				shortfalls = append(shortfalls, shortfallFor(item, 0))
				continue
			}
			return nil, nil, fmt.Errorf("%w: read product %s: %v", domain.ErrPersistenceFailure, item.ProductID, err)
		}

		available := product.Stock
		if item.VariantID != "" {
			variant, ok := product.FindVariant(item.VariantID)
			if !ok {
				shortfalls = append(shortfalls, shortfallFor(item, 0))
				continue
			}
			available = variant.Stock
		}

		planned := available - item.Qty
		if planned < 0 {
			shortfalls = append(shortfalls, shortfallFor(item, available))
			continue
		}
		writes = append(writes, stockWrite{
			productID: item.ProductID,
			variantID: item.VariantID,
			newStock:  planned,
			prevStock: available,
		})
	}

	if len(shortfalls) > 0 {
		return nil, shortfalls, nil
	}
	return writes, nil, nil
}

func (r *Reconciler) apply(write stockWrite) error {
	var err error
	if write.variantID != "" {
		_, err = r.gateway.SetVariantStock(write.productID, write.variantID, write.newStock)
	} else {
		_, err = r.gateway.SetProductStock(write.productID, write.newStock)
	}
	return err
}

// rollback возвращает уже применённые записи к прежним значениям.
// Best-effort: единственный логический писатель, поэтому prevStock актуален.
func (r *Reconciler) rollback(applied []stockWrite) {
	for _, write := range applied {
		restore := write
		restore.newStock = write.prevStock
		if err := r.apply(restore); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"product_id": write.productID,
				"variant_id": write.variantID,
			}).Error("rollback of applied stock write failed")
			r.notifyError(fmt.Sprintf("stock rollback failed for product %s: counters may be inconsistent", write.productID))
		}
	}
}

func (r *Reconciler) restoreItem(item domain.OrderItem) error {
	product, err := r.gateway.GetProduct(item.ProductID)
	if err != nil {
		return fmt.Errorf("read product: %w", err)
	}

	if item.VariantID != "" {
		variant, ok := product.FindVariant(item.VariantID)
		if !ok {
			return domain.ErrVariantNotFound
		}
		if _, err := r.gateway.SetVariantStock(item.ProductID, item.VariantID, variant.Stock+item.Qty); err != nil {
			return fmt.Errorf("write variant stock: %w", err)
		}
		return nil
	}

	if _, err := r.gateway.SetProductStock(item.ProductID, product.Stock+item.Qty); err != nil {
		return fmt.Errorf("write product stock: %w", err)
	}
	return nil
}

func (r *Reconciler) notifyWarning(message string) {
	if r.notifier != nil {
		r.notifier.Warning(message)
	}
}

func (r *Reconciler) notifyError(message string) {
	if r.notifier != nil {
		r.notifier.Error(message)
	}
}

func shortfallFor(item domain.OrderItem, available int32) domain.Shortfall {
	return domain.Shortfall{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Title:     item.Title,
		Requested: item.Qty,
		Available: available,
	}
}
