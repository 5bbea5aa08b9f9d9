package state

import "github.com/couchcryptid/hydro-sonify/internal/domain"

// DatasetStore holds the loaded stations.
type DatasetStore struct {
	*Store[[]*domain.Station]
}

// NewDatasetStore creates an empty dataset store.
func NewDatasetStore(rt *Runtime) *DatasetStore {
	return &DatasetStore{Store: NewStore[[]*domain.Station](rt, nil)}
}

// GetStationByID returns the station with the given id, or nil unless
// exactly one station matches.
func (d *DatasetStore) GetStationByID(id string) *domain.Station {
	var found *domain.Station
	for _, s := range d.Get() {
		if s.Info.ID != id {
			continue
		}
		if found != nil {
			return nil
		}
		found = s
	}
	return found
}

// GetStationsInfo returns the info part of every station, in dataset order.
func (d *DatasetStore) GetStationsInfo() []domain.StationInfo {
	stations := d.Get()
	infos := make([]domain.StationInfo, len(stations))
	for i, s := range stations {
		infos[i] = s.Info
	}
	return infos
}

// Len returns the number of stations.
func (d *DatasetStore) Len() int {
	return len(d.Get())
}
