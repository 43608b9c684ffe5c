package template

import "testing"

// liveTemplate mirrors a GET template-programmer/template/{id} response.
const liveTemplate = `{
    "name": "access-switch",
    "projectName": "Onboarding",
    "projectId": "p-1",
    "id": "t-1",
    "softwareType": "IOS-XE",
    "deviceTypes": [{"productFamily": "Switches and Hubs"}],
    "version": "3",
    "createTime": 1593519414185,
    "templateContent": "hostname $hostname\nvlan $vlan\n",
    "templateParams": [
        {
            "id": "param-1",
            "parameterName": "hostname",
            "dataType": "STRING",
            "required": true,
            "order": 1,
            "range": [],
            "selection": {"id": "sel-1", "selectionValues": {}}
        },
        {
            "id": "param-2",
            "parameterName": "vlan",
            "dataType": "INTEGER",
            "required": false,
            "order": 2,
            "range": [{"id": "r-1", "minValue": 1, "maxValue": 4094}]
        }
    ]
}`

func mustParse(t *testing.T, s string) Document {
	t.Helper()
	doc, err := ParseDocument([]byte(s))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return doc
}
