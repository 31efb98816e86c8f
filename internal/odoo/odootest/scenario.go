package odootest

import (
	"encoding/base64"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

func encode(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// NewScenarioStore holds project F-2024-001 (id 7, found by reference) with
// stages Draft and Review, a task in each, one task without stage, one
// archived task and a handful of attachments.
func NewScenarioStore() *Store {
	s := NewStore()
	s.Add(odoo.ModelProject,
		odoo.Record{"id": int64(3), "name": "Bodega Sur", "reference": "F-2023-090"},
		odoo.Record{"id": int64(7), "name": "Obra Norte", "reference": "F-2024-001"},
	)
	s.Add(odoo.ModelStage,
		odoo.Record{"id": int64(11), "name": "Review", "sequence": int64(2), "project_ids": []any{int64(7)}},
		odoo.Record{"id": int64(10), "name": "Draft", "sequence": int64(1), "project_ids": []any{int64(7), int64(3)}},
	)
	s.Add(odoo.ModelTask,
		odoo.Record{"id": int64(100), "name": "Plano / Base", "project_id": []any{int64(7), "Obra Norte"}, "stage_id": []any{int64(10), "Draft"}, "sequence": int64(1)},
		odoo.Record{"id": int64(101), "name": "Revisión", "project_id": []any{int64(7), "Obra Norte"}, "stage_id": []any{int64(11), "Review"}, "sequence": int64(2)},
		odoo.Record{"id": int64(102), "name": "Suelto", "project_id": []any{int64(7), "Obra Norte"}, "stage_id": false, "sequence": int64(3)},
		odoo.Record{"id": int64(103), "name": "Archivada", "project_id": []any{int64(7), "Obra Norte"}, "stage_id": []any{int64(10), "Draft"}, "active": false},
	)
	s.Add(odoo.ModelAttachment,
		odoo.Record{"id": int64(500), "name": "contrato.pdf", "res_model": odoo.ModelProject, "res_id": int64(7), "datas": encode("contract"), "mimetype": "application/pdf", "file_size": int64(8)},
		odoo.Record{"id": int64(501), "name": "plano.dwg", "res_model": odoo.ModelTask, "res_id": int64(100), "datas": encode("v1"), "file_size": int64(2)},
		odoo.Record{"id": int64(502), "name": "plano.dwg", "res_model": odoo.ModelTask, "res_id": int64(100), "datas": encode("v2"), "file_size": int64(2)},
		odoo.Record{"id": int64(503), "name": "vacio.txt", "res_model": odoo.ModelTask, "res_id": int64(101), "datas": false, "file_size": int64(0)},
		odoo.Record{"id": int64(504), "name": "nota.txt", "res_model": odoo.ModelTask, "res_id": int64(102), "datas": encode("note"), "file_size": int64(4)},
		odoo.Record{"id": int64(505), "name": "otro.pdf", "res_model": odoo.ModelProject, "res_id": int64(3), "datas": encode("other"), "file_size": int64(5)},
	)
	s.DeclareFields(odoo.ModelAttachment, "mimetype")
	return s
}
