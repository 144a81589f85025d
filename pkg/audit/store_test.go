package audit

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := FindEvent{
		UserID:       "u1",
		ClientIP:     "10.0.0.1",
		EntityType:   "project",
		Workspace:    "acme",
		TotalRecords: 7,
		Success:      true,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityUser,      // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			"modeldb",         // appname
			sqlmock.AnyArg(),  // procid
			"find",            // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			sqlmock.AnyArg(),  // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveNilDBIsNoOp(t *testing.T) {
	store := NewStoreWithDB(nil)
	if err := store.Save(CreateEvent{UserID: "u1", EntityType: "project", Success: true}); err != nil {
		t.Errorf("Save() on nil db error = %v", err)
	}
}

func TestStoreSaveDeleteEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := DeleteEvent{
		UserID:     "u1",
		ClientIP:   "10.0.0.1",
		EntityType: "dataset",
		EntityIDs:  []string{"d1"},
		Success:    true,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityUser,
			int(SeverityNotice),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"modeldb",
			sqlmock.AnyArg(),
			"delete",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(event); err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
