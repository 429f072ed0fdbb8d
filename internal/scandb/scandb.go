// Package scandb implements the persistent channel database the scan
// driver hands completed transponders and services to: add_channel,
// add_service, get_service, remove_services and get_bouquet, backed by
// SQLite, plus the insert_into purge-and-insert policy described by the
// insertion policy of the engine this package supports.
package scandb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// Store is the channel database, backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	namespace  INTEGER NOT NULL,
	tsid       INTEGER NOT NULL,
	onid       INTEGER NOT NULL,
	system     INTEGER NOT NULL,
	params     BLOB NOT NULL,
	PRIMARY KEY (namespace, tsid, onid)
);
CREATE TABLE IF NOT EXISTS services (
	namespace    INTEGER NOT NULL,
	tsid         INTEGER NOT NULL,
	onid         INTEGER NOT NULL,
	service_id   INTEGER NOT NULL,
	service_type INTEGER NOT NULL,
	name         TEXT NOT NULL,
	sort_name    TEXT NOT NULL,
	provider     TEXT NOT NULL,
	ca_ids       TEXT NOT NULL DEFAULT '',
	hold_name    INTEGER NOT NULL DEFAULT 0,
	no_sdt       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (namespace, tsid, onid, service_id)
);
CREATE TABLE IF NOT EXISTS bouquets (
	name TEXT PRIMARY KEY,
	refs TEXT NOT NULL
);
`

// Open opens or creates the SQLite database at path and ensures its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("scandb: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scandb: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// AddChannel records a transponder (add_channel). params is marshaled into
// an opaque blob; this core never needs to query on the individual tuning
// fields, only to replay them on a future rescan.
func (s *Store) AddChannel(chid dvbid.ChannelID, params tuning.Params) error {
	blob, err := marshalParams(params)
	if err != nil {
		return fmt.Errorf("scandb: marshal params: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO channels (namespace, tsid, onid, system, params) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, tsid, onid) DO UPDATE SET system=excluded.system, params=excluded.params`,
		chid.Namespace, chid.TSID, chid.ONID, int(params.System), blob,
	)
	if err != nil {
		return fmt.Errorf("scandb: add channel %s: %w", chid, err)
	}
	return nil
}

// AddService inserts or updates one service (add_service). A pre-existing
// row with hold_name set keeps its name/sort_name/provider; a row marked
// no_sdt is left untouched entirely, per the insertion policy.
func (s *Store) AddService(svc tables.Service) error {
	ref := svc.Ref
	var holdName, noSDT bool
	err := s.db.QueryRow(
		`SELECT hold_name, no_sdt FROM services WHERE namespace=? AND tsid=? AND onid=? AND service_id=?`,
		ref.ChannelID.Namespace, ref.ChannelID.TSID, ref.ChannelID.ONID, ref.ServiceID,
	).Scan(&holdName, &noSDT)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("scandb: lookup service %s: %w", ref, err)
	}
	if exists && noSDT {
		return nil
	}

	name, provider := svc.Name, svc.Provider
	if exists && holdName {
		if err := s.db.QueryRow(
			`SELECT name, provider FROM services WHERE namespace=? AND tsid=? AND onid=? AND service_id=?`,
			ref.ChannelID.Namespace, ref.ChannelID.TSID, ref.ChannelID.ONID, ref.ServiceID,
		).Scan(&name, &provider); err != nil {
			return fmt.Errorf("scandb: reload held name for %s: %w", ref, err)
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO services (namespace, tsid, onid, service_id, service_type, name, sort_name, provider, ca_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, tsid, onid, service_id) DO UPDATE SET
		   service_type=excluded.service_type, name=excluded.name, sort_name=excluded.sort_name,
		   provider=excluded.provider, ca_ids=excluded.ca_ids`,
		ref.ChannelID.Namespace, ref.ChannelID.TSID, ref.ChannelID.ONID, ref.ServiceID,
		int(ref.ServiceType), name, sortName(name), provider, encodeCAIDs(svc.CAIDs),
	)
	if err != nil {
		return fmt.Errorf("scandb: add service %s: %w", ref, err)
	}
	return nil
}

// GetChannel fetches one transponder's tuning parameters by channel id,
// used when a rescan needs to replay a previously discovered transponder.
func (s *Store) GetChannel(chid dvbid.ChannelID) (tuning.Params, bool, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT params FROM channels WHERE namespace=? AND tsid=? AND onid=?`,
		chid.Namespace, chid.TSID, chid.ONID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return tuning.Params{}, false, nil
	}
	if err != nil {
		return tuning.Params{}, false, fmt.Errorf("scandb: get channel %s: %w", chid, err)
	}
	params, err := unmarshalParams(blob)
	if err != nil {
		return tuning.Params{}, false, fmt.Errorf("scandb: unmarshal params for %s: %w", chid, err)
	}
	return params, true, nil
}

// GetService fetches one service by reference.
func (s *Store) GetService(ref dvbid.ServiceRef) (tables.Service, bool, error) {
	var svc tables.Service
	svc.Ref = ref
	var caids string
	err := s.db.QueryRow(
		`SELECT name, provider, ca_ids FROM services WHERE namespace=? AND tsid=? AND onid=? AND service_id=?`,
		ref.ChannelID.Namespace, ref.ChannelID.TSID, ref.ChannelID.ONID, ref.ServiceID,
	).Scan(&svc.Name, &svc.Provider, &caids)
	if err == sql.ErrNoRows {
		return tables.Service{}, false, nil
	}
	if err != nil {
		return tables.Service{}, false, fmt.Errorf("scandb: get service %s: %w", ref, err)
	}
	svc.CAIDs = decodeCAIDs(caids)
	return svc, true, nil
}

// RemoveServices implements remove_services(chid [, orbital_position]):
// chid's namespace may be a wildcard high half (0xEEEE0000/0xFFFF0000, or
// position<<16 for a satellite feed) in which case matching is scoped by
// namespace alone; otherwise the full (namespace, tsid, onid) triple is
// matched.
func (s *Store) RemoveServices(namespace dvbid.Namespace, exact *dvbid.ChannelID) error {
	var err error
	if exact != nil {
		_, err = s.db.Exec(`DELETE FROM services WHERE namespace=? AND tsid=? AND onid=?`,
			exact.Namespace, exact.TSID, exact.ONID)
	} else {
		_, err = s.db.Exec(`DELETE FROM services WHERE namespace=?`, namespace)
	}
	if err != nil {
		return fmt.Errorf("scandb: remove services: %w", err)
	}
	return nil
}

// RemoveServicesByPositionPrefix deletes every service whose namespace's
// high 16 bits equal posHigh16, regardless of the low 16 bits — the "full
// wildcard" satellite removal from the insertion policy, which purges
// non-default-namespace feeds at the same orbital position along with the
// default one.
func (s *Store) RemoveServicesByPositionPrefix(posHigh16 uint16) error {
	if _, err := s.db.Exec(`DELETE FROM services WHERE (namespace >> 16) = ?`, posHigh16); err != nil {
		return fmt.Errorf("scandb: remove services at position prefix %04x: %w", posHigh16, err)
	}
	return nil
}

// ChannelRow pairs a channel id with its tuning parameters, for enumeration.
type ChannelRow struct {
	ChannelID dvbid.ChannelID
	Params    tuning.Params
}

// ListChannels returns every transponder in the database, for the browse
// tree (internal/channelfs) and for rescan tooling.
func (s *Store) ListChannels() ([]ChannelRow, error) {
	rows, err := s.db.Query(`SELECT namespace, tsid, onid, params FROM channels`)
	if err != nil {
		return nil, fmt.Errorf("scandb: list channels: %w", err)
	}
	defer rows.Close()

	var out []ChannelRow
	for rows.Next() {
		var chid dvbid.ChannelID
		var blob []byte
		if err := rows.Scan(&chid.Namespace, &chid.TSID, &chid.ONID, &blob); err != nil {
			return nil, fmt.Errorf("scandb: scan channel row: %w", err)
		}
		params, err := unmarshalParams(blob)
		if err != nil {
			return nil, fmt.Errorf("scandb: unmarshal params for %s: %w", chid, err)
		}
		out = append(out, ChannelRow{ChannelID: chid, Params: params})
	}
	return out, rows.Err()
}

// ServicesIn returns every service filed under chid, ordered by service id,
// for the browse tree.
func (s *Store) ServicesIn(chid dvbid.ChannelID) ([]tables.Service, error) {
	rows, err := s.db.Query(
		`SELECT service_id, service_type, name, provider, ca_ids FROM services
		 WHERE namespace=? AND tsid=? AND onid=? ORDER BY service_id`,
		chid.Namespace, chid.TSID, chid.ONID,
	)
	if err != nil {
		return nil, fmt.Errorf("scandb: services in %s: %w", chid, err)
	}
	defer rows.Close()

	var out []tables.Service
	for rows.Next() {
		var svc tables.Service
		var serviceType int
		var caids string
		if err := rows.Scan(&svc.Ref.ServiceID, &serviceType, &svc.Name, &svc.Provider, &caids); err != nil {
			return nil, fmt.Errorf("scandb: scan service row: %w", err)
		}
		svc.Ref.ChannelID = chid
		svc.Ref.ServiceType = dvbid.ServiceType(serviceType)
		svc.CAIDs = decodeCAIDs(caids)
		out = append(out, svc)
	}
	return out, rows.Err()
}

// Bouquet is a named, ordered list of service references.
type Bouquet struct {
	Name string
	Refs []dvbid.ServiceRef
}

// GetBouquet loads a bouquet by name.
func (s *Store) GetBouquet(name string) (Bouquet, bool, error) {
	var refs string
	err := s.db.QueryRow(`SELECT refs FROM bouquets WHERE name=?`, name).Scan(&refs)
	if err == sql.ErrNoRows {
		return Bouquet{}, false, nil
	}
	if err != nil {
		return Bouquet{}, false, fmt.Errorf("scandb: get bouquet %s: %w", name, err)
	}
	return Bouquet{Name: name, Refs: decodeRefs(refs)}, true, nil
}

// PutBouquet replaces a bouquet's contents wholesale, used to recreate the
// "Last Scanned" bouquet after a foreground scan.
func (s *Store) PutBouquet(b Bouquet) error {
	_, err := s.db.Exec(
		`INSERT INTO bouquets (name, refs) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET refs=excluded.refs`,
		b.Name, encodeRefs(b.Refs),
	)
	if err != nil {
		return fmt.Errorf("scandb: put bouquet %s: %w", b.Name, err)
	}
	return nil
}
