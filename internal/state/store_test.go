package state

import (
	"testing"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SubscribeCallsImmediately(t *testing.T) {
	s := NewStore(NewRuntime(), 1)

	var got []int
	unsub := s.Subscribe(func(v int) { got = append(got, v) })
	s.Set(2)
	s.Update(func(v int) int { return v * 10 })
	unsub()
	s.Set(3)

	assert.Equal(t, []int{1, 2, 20}, got)
	assert.Equal(t, 3, s.Get())
}

func TestStore_NotifiesEverySetUnlessComparable(t *testing.T) {
	rt := NewRuntime()
	plain := NewStore(rt, "a")
	cmp := NewComparableStore(rt, "a")

	var plainCalls, cmpCalls int
	plain.Subscribe(func(string) { plainCalls++ })
	cmp.Subscribe(func(string) { cmpCalls++ })

	plain.Set("a")
	cmp.Set("a")
	cmp.Set("b")

	assert.Equal(t, 2, plainCalls)
	assert.Equal(t, 2, cmpCalls)
}

func TestStore_NestedSetRunsAfterCurrentSubscriber(t *testing.T) {
	rt := NewRuntime()
	a := NewStore(rt, 0)
	b := NewStore(rt, 0)

	var log []string
	a.Subscribe(func(v int) {
		if v == 0 {
			return
		}
		log = append(log, "a-start")
		b.Set(v)
		log = append(log, "a-end")
	})
	b.Subscribe(func(v int) {
		if v != 0 {
			log = append(log, "b")
		}
	})

	a.Set(1)
	assert.Equal(t, []string{"a-start", "a-end", "b"}, log)
}

func TestStore_UnsubscribeDuringFlush(t *testing.T) {
	s := NewStore(NewRuntime(), 0)

	var second int
	var unsubSecond func()
	s.Subscribe(func(v int) {
		if v == 1 && unsubSecond != nil {
			unsubSecond()
		}
	})
	unsubSecond = s.Subscribe(func(v int) { second = v })

	s.Set(1)
	assert.Equal(t, 0, second, "unsubscribed before its turn")
}

func TestDerive2_RecomputesWithPrevious(t *testing.T) {
	rt := NewRuntime()
	a := NewComparableStore(rt, 1)
	b := NewComparableStore(rt, 10)

	var prevs []int
	d := Derive2(rt, a, b, 0, func(prev, x, y int) int {
		prevs = append(prevs, prev)
		return x + y
	})
	defer d.Close()

	assert.Equal(t, 11, d.Get())
	a.Set(2)
	b.Set(20)
	assert.Equal(t, 22, d.Get())
	assert.Equal(t, []int{0, 11, 12}, prevs)
}

func TestDerive2_WriteBackConverges(t *testing.T) {
	rt := NewRuntime()
	target := NewComparableStore(rt, 5)
	current := NewComparableStore(rt, 0)

	runs := 0
	d := Derive2(rt, target, current, 0, func(_ int, tgt, cur int) int {
		runs++
		if cur != tgt {
			current.Set(tgt)
		}
		return cur
	})
	defer d.Close()

	assert.Equal(t, 5, current.Get())
	assert.Equal(t, 5, d.Get())
	assert.Equal(t, 2, runs)

	runs = 0
	target.Set(7)
	assert.Equal(t, 7, d.Get())
	assert.Equal(t, 2, runs)
}

func TestDerive2_Close(t *testing.T) {
	rt := NewRuntime()
	a := NewStore(rt, 1)
	b := NewStore(rt, 1)
	d := Derive2(rt, a, b, 0, func(_, x, y int) int { return x * y })

	d.Close()
	a.Set(5)
	assert.Equal(t, 1, d.Get())
}

func TestDatasetStore_Helpers(t *testing.T) {
	d := NewDatasetStore(NewRuntime())
	assert.Nil(t, d.GetStationByID("x"))
	assert.Empty(t, d.GetStationsInfo())

	d.Set([]*domain.Station{
		{Info: domain.StationInfo{ID: "A", Index: 0}},
		{Info: domain.StationInfo{ID: "B", Index: 1}},
		{Info: domain.StationInfo{ID: "B", Index: 2}},
	})

	require.NotNil(t, d.GetStationByID("A"))
	assert.Equal(t, 0, d.GetStationByID("A").Info.Index)
	assert.Nil(t, d.GetStationByID("B"), "ambiguous id")
	assert.Nil(t, d.GetStationByID("C"))

	infos := d.GetStationsInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "B", infos[2].ID)
	assert.Equal(t, 3, d.Len())
}

func TestPanels_ShowRestores(t *testing.T) {
	app := NewApp(domain.DefaultConfiguration())
	app.Panels.Plots.Set(true)

	restore := app.Panels.Show(false, true, true)
	assert.False(t, app.Panels.Plots.Get())
	assert.True(t, app.Panels.Options.Get())
	assert.True(t, app.Panels.Info.Get())

	restore()
	assert.True(t, app.Panels.Plots.Get())
	assert.False(t, app.Panels.Options.Get())
	assert.False(t, app.Panels.Info.Get())
}

func TestApp_TutorialReady(t *testing.T) {
	app := NewApp(domain.DefaultConfiguration())
	assert.False(t, app.UITutorialReady.Get())

	app.CenterStation.Set(&domain.Station{Info: domain.StationInfo{ID: "A"}})
	assert.False(t, app.UITutorialReady.Get())

	app.MapStore.Set("map")
	assert.True(t, app.UITutorialReady.Get())

	app.CenterStation.Set(nil)
	assert.False(t, app.UITutorialReady.Get())
	assert.Equal(t, NoMonth, app.HighlightMonth.Get())
}
