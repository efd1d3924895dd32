package cache

import "sort"

// scaleIndex keeps, per page, the sorted set of scales currently cached.
type scaleIndex map[int][]float64

func (idx scaleIndex) add(page int, scale float64) {
	scales := idx[page]
	i := sort.SearchFloat64s(scales, scale)
	if i < len(scales) && scales[i] == scale {
		return
	}
	scales = append(scales, 0)
	copy(scales[i+1:], scales[i:])
	scales[i] = scale
	idx[page] = scales
}

func (idx scaleIndex) remove(page int, scale float64) {
	scales := idx[page]
	i := sort.SearchFloat64s(scales, scale)
	if i == len(scales) || scales[i] != scale {
		return
	}
	scales = append(scales[:i], scales[i+1:]...)
	if len(scales) == 0 {
		delete(idx, page)
		return
	}
	idx[page] = scales
}

// closest returns the scale of page nearest to target. When target sits
// exactly between two cached scales the smaller one wins.
func (idx scaleIndex) closest(page int, target float64) (float64, bool) {
	scales := idx[page]
	if len(scales) == 0 {
		return 0, false
	}

	i := sort.SearchFloat64s(scales, target)
	if i == 0 {
		return scales[0], true
	}
	prev := scales[i-1]
	if i == len(scales) || target-prev <= scales[i]-target {
		return prev, true
	}
	return scales[i], true
}
