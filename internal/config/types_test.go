package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefinition_UnmarshalYAMLTransfer(t *testing.T) {
	t.Parallel()

	doc := `
type: transfer
variables:
  FEED: nightly
source:
  hostname: drop.example.com
  directory: /outbound
  fileRegex: 'report-.*\.csv'
  protocol:
    name: sftp
    port: 2222
    credentials:
      username: feeds
      keyFile: /etc/flotilla/id_ed25519
destination:
  - hostname: warehouse.example.com
    directory: /inbound
    protocol:
      name: sftp
      credentials:
        username: loader
        password: secret
  - protocol:
      name: email
      smtp:
        host: smtp.example.com
        port: 587
        sender: batch@example.com
    recipients:
      - ops@example.com
    subject: nightly report
`

	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(doc), &def))

	require.Equal(t, "transfer", def.Type)
	require.Equal(t, map[string]string{"FEED": "nightly"}, def.Variables)
	require.Nil(t, def.Execution)
	require.Nil(t, def.Batch)

	require.NotNil(t, def.Transfer)
	require.Equal(t, "drop.example.com", def.Transfer.Source.Hostname)
	require.Equal(t, "/outbound", def.Transfer.Source.Directory)
	require.Equal(t, `report-.*\.csv`, def.Transfer.Source.FileRegex)
	require.Equal(t, "sftp", def.Transfer.Source.Protocol.Name)
	require.Equal(t, 2222, def.Transfer.Source.Protocol.Port)
	require.Equal(t, "feeds", def.Transfer.Source.Protocol.Credentials.Username)
	require.Equal(t, "/etc/flotilla/id_ed25519", def.Transfer.Source.Protocol.Credentials.KeyFile)

	require.Len(t, def.Transfer.Destinations, 2)
	require.Equal(t, "warehouse.example.com", def.Transfer.Destinations[0].Hostname)
	require.Equal(t, "secret", def.Transfer.Destinations[0].Protocol.Credentials.Password)
	require.Equal(t, "email", def.Transfer.Destinations[1].Protocol.Name)
	require.NotNil(t, def.Transfer.Destinations[1].Protocol.SMTP)
	require.Equal(t, "smtp.example.com", def.Transfer.Destinations[1].Protocol.SMTP.Host)
	require.Equal(t, []string{"ops@example.com"}, def.Transfer.Destinations[1].Recipients)
	require.Equal(t, "nightly report", def.Transfer.Destinations[1].Subject)
}

func TestDefinition_UnmarshalYAMLExecution(t *testing.T) {
	t.Parallel()

	doc := `
type: execution
hosts:
  - alpha.example.com
  - beta.example.com
command: "df -h /data"
directory: /var/run
protocol:
  name: ssh
  credentials:
    username: batch
`

	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(doc), &def))

	require.Equal(t, "execution", def.Type)
	require.Nil(t, def.Transfer)
	require.Nil(t, def.Batch)

	require.NotNil(t, def.Execution)
	require.Equal(t, []string{"alpha.example.com", "beta.example.com"}, def.Execution.Hosts)
	require.Equal(t, "df -h /data", def.Execution.Command)
	require.Equal(t, "/var/run", def.Execution.Directory)
	require.Equal(t, "ssh", def.Execution.Protocol.Name)
	require.Equal(t, "batch", def.Execution.Protocol.Credentials.Username)
}

func TestDefinition_UnmarshalYAMLBatch(t *testing.T) {
	t.Parallel()

	doc := `
type: batch
tasks:
  - order_id: 1
    task_id: fetch-report
  - order_id: 2
    task_id: load-report
    dependencies: [1]
    timeout: 60
    continue_on_fail: true
    retry_on_rerun: true
`

	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(doc), &def))

	require.Equal(t, "batch", def.Type)
	require.Nil(t, def.Transfer)
	require.Nil(t, def.Execution)

	require.NotNil(t, def.Batch)
	require.Len(t, def.Batch.Tasks, 2)
	require.Equal(t, BatchEntry{OrderID: 1, TaskID: "fetch-report"}, def.Batch.Tasks[0])
	require.Equal(t, BatchEntry{
		OrderID:        2,
		TaskID:         "load-report",
		Dependencies:   []int{1},
		Timeout:        60,
		ContinueOnFail: true,
		RetryOnRerun:   true,
	}, def.Batch.Tasks[1])
}

func TestDefinition_UnmarshalYAMLUnknownTypeLeavesSpecsNil(t *testing.T) {
	t.Parallel()

	doc := `
type: teleport
hosts: [somewhere]
`

	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(doc), &def))

	require.Equal(t, "teleport", def.Type)
	require.Nil(t, def.Transfer)
	require.Nil(t, def.Execution)
	require.Nil(t, def.Batch)
}

func TestDefinition_UnmarshalYAMLRejectsMalformedSpec(t *testing.T) {
	t.Parallel()

	doc := `
type: execution
hosts: "not a list"
`

	var def Definition
	require.Error(t, yaml.Unmarshal([]byte(doc), &def))
}
