package registry

import (
	"strings"

	"sfc/table"
	"sfc/utils"
)

// 初值同步的判定容差
const initialValueEps = 1e-10

// Synchronizer 表格同步器
// 共享存量的表格之间按行描述对齐流量行: 已知行复制方程, 未知行追加新行.
// 优先表的方程总是覆盖目标表, 空方程与 "0" 永不传播
type Synchronizer struct {
	registry   *StockRegistry
	inProgress map[*table.Table]bool
}

// NewSynchronizer 初始化
func NewSynchronizer(r *StockRegistry) *Synchronizer {
	return &Synchronizer{
		registry:   r,
		inProgress: make(map[*table.Table]bool),
	}
}

// normalizeEquation 方程归一化, 空白与 "0" 视为空
func normalizeEquation(eq string) string {
	eq = strings.TrimSpace(eq)
	if eq == "0" {
		return ""
	}
	return eq
}

// queuedCell 待追加行中的一个单元格
type queuedCell struct {
	col int
	eq  string
}

// SynchronizeTable 以各共享表为来源同步目标表, 返回是否实际修改了目标表
// priority 非空时其方程覆盖目标表已有方程, 其余来源只填充空单元格.
// 目标即优先表时为无操作; 目标表正在同步中时直接返回 false, 防止递归重入
func (s *Synchronizer) SynchronizeTable(target *table.Table, priority *table.Table) bool {
	if target == nil || target == priority || s.inProgress[target] {
		return false
	}
	s.inProgress[target] = true
	defer delete(s.inProgress, target)

	modified := false

	// 目标表现有行的描述索引
	targetRows := make(map[string]int)
	for row := 0; row < target.Rows(); row++ {
		desc := strings.TrimSpace(target.RowDescription(row))
		if desc != "" {
			if _, ok := targetRows[desc]; !ok {
				targetRows[desc] = row
			}
		}
	}

	var queueOrder []string
	queued := make(map[string][]queuedCell)

	for col := 0; col < target.Cols(); col++ {
		if target.IsComputedColumn(col) {
			continue
		}
		c := target.Column(col)
		stock := strings.TrimSpace(c.StockName)
		if stock == "" {
			continue
		}
		for _, peer := range s.registry.TablesFor(stock) {
			if peer == target {
				continue
			}
			peerCol := peer.FindColumnByStock(c.StockName)
			if peerCol < 0 || peer.IsComputedColumn(peerCol) {
				continue
			}
			isPriority := peer == priority
			for row := 0; row < peer.Rows(); row++ {
				desc := strings.TrimSpace(peer.RowDescription(row))
				if desc == "" {
					continue
				}
				eq := normalizeEquation(peer.CellEquation(row, peerCol))
				if eq == "" {
					continue
				}
				if targetRow, ok := targetRows[desc]; ok {
					cur := normalizeEquation(target.CellEquation(targetRow, col))
					if (isPriority && cur != eq) || cur == "" {
						target.SetCellEquation(targetRow, col, eq)
						modified = true
					}
					continue
				}
				// 行不存在, 排队等待统一追加
				cells, ok := queued[desc]
				if !ok {
					queueOrder = append(queueOrder, desc)
				}
				queued[desc] = append(cells, queuedCell{col: col, eq: eq})
			}
			// 共享存量初值跟随优先表
			if isPriority {
				if pc := peer.Column(peerCol); pc != nil {
					if !utils.Near(c.InitialValue, pc.InitialValue, initialValueEps) {
						c.InitialValue = pc.InitialValue
						modified = true
					}
				}
			}
		}
	}

	for _, desc := range queueOrder {
		row := target.AppendRow(desc)
		for _, cell := range queued[desc] {
			target.SetCellEquation(row, cell.col, cell.eq)
		}
		modified = true
	}
	return modified
}

// SynchronizeRelatedTables 以触发表为中心的两阶段同步
// 推送阶段: 触发表作为优先表同步所有共享存量的对端表;
// 回拉阶段: 触发表自身以无优先表方式吸收对端新增的行
func (s *Synchronizer) SynchronizeRelatedTables(trigger *table.Table) {
	if trigger == nil {
		return
	}
	pushed := map[*table.Table]bool{trigger: true}
	for col := 0; col < trigger.Cols(); col++ {
		if trigger.IsComputedColumn(col) {
			continue
		}
		stock := strings.TrimSpace(trigger.Column(col).StockName)
		if stock == "" {
			continue
		}
		for _, peer := range s.registry.TablesFor(stock) {
			if pushed[peer] {
				continue
			}
			pushed[peer] = true
			s.SynchronizeTable(peer, trigger)
		}
	}
	s.SynchronizeTable(trigger, nil)
}

// DeleteMatchingFlowRows 跨表删除同名流量行
// 对给定存量集关联的每张对端表至多处理一次, 只删除在这些存量列上
// 确有非空方程的匹配行, 返回删除的对端行数
func (s *Synchronizer) DeleteMatchingFlowRows(source *table.Table, rowDesc string, stocks []string) int {
	desc := strings.TrimSpace(rowDesc)
	if desc == "" {
		return 0
	}
	stockSet := make(map[string]bool)
	for _, stock := range stocks {
		stock = strings.TrimSpace(stock)
		if stock != "" {
			stockSet[stock] = true
		}
	}
	touched := map[*table.Table]bool{source: true}
	deleted := 0
	for _, stock := range stocks {
		stock = strings.TrimSpace(stock)
		if stock == "" {
			continue
		}
		for _, peer := range s.registry.TablesFor(stock) {
			if touched[peer] {
				continue
			}
			touched[peer] = true
			row := findRow(peer, desc)
			if row < 0 {
				continue
			}
			if !rowTouchesStocks(peer, row, stockSet) {
				continue
			}
			peer.RemoveRow(row)
			deleted++
		}
	}
	return deleted
}

func findRow(t *table.Table, desc string) int {
	for row := 0; row < t.Rows(); row++ {
		if strings.TrimSpace(t.RowDescription(row)) == desc {
			return row
		}
	}
	return -1
}

// rowTouchesStocks 校验该行在给定存量列上存在非空方程
func rowTouchesStocks(t *table.Table, row int, stocks map[string]bool) bool {
	for col := 0; col < t.Cols(); col++ {
		if t.IsComputedColumn(col) {
			continue
		}
		if !stocks[strings.TrimSpace(t.Column(col).StockName)] {
			continue
		}
		if normalizeEquation(t.CellEquation(row, col)) != "" {
			return true
		}
	}
	return false
}
