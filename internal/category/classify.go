package category

import "sort"

// Classify：返回标签完全满足的类别键（用于入库时写 categories 列）
// 约束：记录中值为 yes/* 的标签只要求键存在且值不为 no
func (idx *Index) Classify(tags map[string]string) []string {
	var out []string
	for key, r := range idx.records {
		if len(r.Tags) > 0 && matchesAll(r.Tags, tags) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func matchesAll(want, have map[string]string) bool {
	for k, v := range want {
		hv, ok := have[k]
		if !ok {
			return false
		}
		if isPlaceholder(v) {
			if hv == "no" {
				return false
			}
			continue
		}
		if hv != v {
			return false
		}
	}
	return true
}
