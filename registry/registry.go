package registry

import (
	"strings"

	"sfc/table"
)

// StockRegistry 存量注册表
// 维护存量名到表格集合的映射, 同一存量出现在两张以上表格中即为共享存量,
// 共享存量驱动表格间的行同步. 注册表随电路生命周期注入, 不做全局单例
type StockRegistry struct {
	stockToTables map[string][]*table.Table
	stockOrder    []string

	// 合并行描述缓存, 仅缓存无优先表的查询结果
	mergedRowsCache map[string][]string
}

// NewStockRegistry 初始化
func NewStockRegistry() *StockRegistry {
	return &StockRegistry{
		stockToTables:   make(map[string][]*table.Table),
		mergedRowsCache: make(map[string][]string),
	}
}

// Register 登记表格持有某存量, 空存量名为无操作
func (r *StockRegistry) Register(stock string, t *table.Table) {
	stock = strings.TrimSpace(stock)
	if stock == "" || t == nil {
		return
	}
	tables, ok := r.stockToTables[stock]
	if !ok {
		r.stockOrder = append(r.stockOrder, stock)
	}
	for _, have := range tables {
		if have == t {
			return
		}
	}
	r.stockToTables[stock] = append(tables, t)
	t.SetWatcher(r)
	delete(r.mergedRowsCache, stock)
}

// Unregister 注销表格对某存量的持有
func (r *StockRegistry) Unregister(stock string, t *table.Table) {
	stock = strings.TrimSpace(stock)
	if stock == "" {
		return
	}
	tables := r.stockToTables[stock]
	for i, have := range tables {
		if have == t {
			r.stockToTables[stock] = append(tables[:i], tables[i+1:]...)
			delete(r.mergedRowsCache, stock)
			break
		}
	}
	if len(r.stockToTables[stock]) == 0 {
		delete(r.stockToTables, stock)
		r.removeOrder(stock)
	}
}

// UnregisterAll 注销表格持有的全部存量
func (r *StockRegistry) UnregisterAll(t *table.Table) {
	for _, stock := range append([]string(nil), r.stockOrder...) {
		r.Unregister(stock, t)
	}
}

func (r *StockRegistry) removeOrder(stock string) {
	for i, s := range r.stockOrder {
		if s == stock {
			r.stockOrder = append(r.stockOrder[:i], r.stockOrder[i+1:]...)
			return
		}
	}
}

// TablesFor 返回持有某存量的表格列表
func (r *StockRegistry) TablesFor(stock string) []*table.Table {
	stock = strings.TrimSpace(stock)
	if stock == "" {
		return nil
	}
	return append([]*table.Table(nil), r.stockToTables[stock]...)
}

// IsShared 判断存量是否被两张以上表格共享
func (r *StockRegistry) IsShared(stock string) bool {
	return len(r.stockToTables[strings.TrimSpace(stock)]) >= 2
}

// SharedStocks 按注册顺序返回全部共享存量
func (r *StockRegistry) SharedStocks() []string {
	var out []string
	for _, stock := range r.stockOrder {
		if len(r.stockToTables[stock]) >= 2 {
			out = append(out, stock)
		}
	}
	return out
}

// Stocks 按注册顺序返回全部存量
func (r *StockRegistry) Stocks() []string {
	return append([]string(nil), r.stockOrder...)
}

// MergedRowDescriptions 合并某存量所有表格的行描述
// 行描述去除首尾空白后去重, 保序; priority 非空时其行排在最前,
// 带优先表的结果不进缓存
func (r *StockRegistry) MergedRowDescriptions(stock string, priority *table.Table) []string {
	stock = strings.TrimSpace(stock)
	if stock == "" {
		return nil
	}
	if priority == nil {
		if cached, ok := r.mergedRowsCache[stock]; ok {
			return append([]string(nil), cached...)
		}
	}
	var merged []string
	seen := make(map[string]bool)
	appendRows := func(t *table.Table) {
		for row := 0; row < t.Rows(); row++ {
			desc := strings.TrimSpace(t.RowDescription(row))
			if desc == "" || seen[desc] {
				continue
			}
			seen[desc] = true
			merged = append(merged, desc)
		}
	}
	if priority != nil {
		appendRows(priority)
	}
	for _, t := range r.stockToTables[stock] {
		if t != priority {
			appendRows(t)
		}
	}
	if priority == nil {
		r.mergedRowsCache[stock] = append([]string(nil), merged...)
	}
	return merged
}

// RowsChanged 实现 table.Watcher, 行变化时失效相关缓存
func (r *StockRegistry) RowsChanged(t *table.Table) {
	for stock, tables := range r.stockToTables {
		for _, have := range tables {
			if have == t {
				delete(r.mergedRowsCache, stock)
				break
			}
		}
	}
}

// Clear 清空注册表, 电路重置或加载时调用
func (r *StockRegistry) Clear() {
	r.stockToTables = make(map[string][]*table.Table)
	r.stockOrder = nil
	r.mergedRowsCache = make(map[string][]string)
}
