package domain

// OrderRepository описывает требования к хранилищу заказов. Репозиторий
// скоупится на активного владельца (гость или конкретный пользователь) и
// перечитывает список при смене владельца.
type OrderRepository interface {
	// SwitchOwner переключает активного владельца и перечитывает его заказы.
	// Пустой ownerID означает гостя.
	SwitchOwner(ownerID string) error
	// List возвращает заказы активного владельца, новые первыми.
	List() ([]Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// Create сохраняет новый заказ в начало списка.
	Create(order Order) error
	// UpdateStatus меняет статус заказа и возвращает обновлённую версию.
	UpdateStatus(id string, status OrderStatus) (Order, error)
	// UpdateNotes меняет заметки заказа независимо от статуса.
	UpdateNotes(id, notes string) (Order, error)
	// Remove удаляет заказ. Единственный способ уничтожить заказ.
	Remove(id string) error
}
