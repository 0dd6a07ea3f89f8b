package portal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"actassist-backend/lib/history"
	"actassist-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const validCode = "ABCDE12345FGHIJ67890KLMNO"

const testHistoryText = `ประวัติการเข้าร่วมกิจกรรม
1. กิจกรรม: ปฐมนิเทศ ประเภทกิจกรรม: กิจกรรมบังคับ
รหัสบาร์โค้ด: 6601A-00012
สถานที่ทำกิจกรรม: หอประชุม
วันที่เข้าร่วมกิจกรรม: 12 มิถุนายน 2566
2. กิจกรรม: บริจาคโลหิต ประเภทกิจกรรม: กิจกรรมเสริม
รหัสบาร์โค้ด: 6602B-00345
สถานที่ทำกิจกรรม: อาคาร 1
วันที่เข้าร่วมกิจกรรม: 3 กรกฎาคม 2566
3. กิจกรรม: อบรม ประเภทกิจกรรม: กิจกรรมพิเศษ
รหัสบาร์โค้ด: 6605E-00999
สถานที่ทำกิจกรรม: ห้อง 2
วันที่เข้าร่วมกิจกรรม: 1 กันยายน 2566`

func newTestClient(portal *fakePortal, mutate func(cfg *Config)) (*Client, *telemetry.RecorderAPI) {
	cfg := portal.testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	tel := &telemetry.RecorderAPI{}
	return NewClient(portal.acquire, WithConfig(cfg), WithCustomTelemetryAPI(tel)), tel
}

func TestSubmitValidatesBeforeAcquiring(t *testing.T) {
	cases := []struct {
		name     string
		cred     Credential
		code     string
		activity string
		message  string
	}{
		{name: "empty code", cred: testCredential, code: "", activity: "101", message: msgMissingInput},
		{name: "no activity", cred: testCredential, code: validCode, activity: "", message: msgMissingInput},
		{name: "24 characters", cred: testCredential, code: validCode[:24], activity: "101", message: msgIncompleteCode},
		{name: "26 characters", cred: testCredential, code: validCode + "X", activity: "101", message: msgIncompleteCode},
		{name: "not logged in", cred: Credential{}, code: validCode, activity: "101", message: MessageNotLoggedIn},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := newFakePortal()
			client, _ := newTestClient(portal, nil)

			result := client.Submit(context.Background(), test.cred, test.code, test.activity)
			require.False(t, result.Success)
			require.Equal(t, test.message, result.Message)
			require.Equal(t, 0, portal.acquireCount())
		})
	}
}

func TestSubmitFillsSerialFields(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, nil)

	result := client.Submit(context.Background(), testCredential, validCode, "102")
	require.True(t, result.Success, result.Message)
	require.Equal(t, msgSubmitted, result.Message)

	require.Len(t, portal.submissions, 1)
	require.Equal(t, submission{
		activity: "102",
		serials:  [CodeSegments]string{"ABCDE", "12345", "FGHIJ", "67890", "KLMNO"},
	}, portal.submissions[0])
	require.True(t, portal.allClosed())
}

func TestSubmitUsesVisibleBrowserByDefault(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, nil)
	client.Submit(context.Background(), testCredential, validCode, "101")
	require.False(t, portal.pages[0].headless)

	portal = newFakePortal()
	client, _ = newTestClient(portal, func(cfg *Config) { cfg.SubmitHeadless = true })
	client.Submit(context.Background(), testCredential, validCode, "101")
	require.True(t, portal.pages[0].headless)
}

func TestSubmitUnknownActivity(t *testing.T) {
	portal := newFakePortal()
	client, tel := newTestClient(portal, nil)

	result := client.Submit(context.Background(), testCredential, validCode, "999")
	require.False(t, result.Success)
	require.Equal(t, msgUnknownActivity, result.Message)
	require.Empty(t, portal.submissions)
	require.Contains(t, tel.IDs(telemetry.EventWarning), "portal:"+report_submit)
	require.True(t, portal.allClosed())
}

func TestSubmitReportsDialog(t *testing.T) {
	portal := newFakePortal()
	portal.submitDialog = "บันทึกเรียบร้อย"
	client, _ := newTestClient(portal, nil)

	result := client.Submit(context.Background(), testCredential, validCode, "101")
	require.True(t, result.Success)
	require.Equal(t, msgSubmitted+" (บันทึกเรียบร้อย)", result.Message)
}

func TestSubmitSignal(t *testing.T) {
	portal := newFakePortal()
	portal.showSignal = true
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.SubmitSignal = ".alert-success" })

	result := client.Submit(context.Background(), testCredential, validCode, "101")
	require.True(t, result.Success, result.Message)

	portal = newFakePortal()
	client, _ = newTestClient(portal, func(cfg *Config) { cfg.SubmitSignal = ".alert-success" })

	result = client.Submit(context.Background(), testCredential, validCode, "101")
	require.False(t, result.Success)
	require.Equal(t, msgNoConfirmation, result.Message)
	require.Len(t, portal.submissions, 1)
}

func TestSubmitRejectedLogin(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, nil)

	result := client.Submit(context.Background(), Credential{Username: "x", Password: "y"}, validCode, "101")
	require.False(t, result.Success)
	require.Equal(t, msgInvalidCredentials, result.Message)
	require.Empty(t, portal.submissions)
}

func TestListActivities(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, nil)

	result := client.ListActivities(context.Background(), testCredential)
	require.True(t, result.Success, result.Message)
	require.Equal(t, []ActivityOption{
		{Label: "ปฐมนิเทศนักศึกษาใหม่", Identifier: "101"},
		{Label: "บริจาคโลหิต", Identifier: "102"},
		{Label: "Sports Day", Identifier: "Sports Day"},
	}, result.Activities)
	require.True(t, portal.pages[0].headless)
	require.True(t, portal.allClosed())
}

func TestListActivitiesBrowserError(t *testing.T) {
	portal := newFakePortal()
	portal.acquireErr = errors.New("chrome crashed")
	client, tel := newTestClient(portal, nil)

	result := client.ListActivities(context.Background(), testCredential)
	require.False(t, result.Success)
	require.Equal(t, msgBrowserError+"chrome crashed", result.Message)
	require.Contains(t, tel.IDs(telemetry.EventBroken), "portal:"+report_browser_acquire)
}

func TestHistory(t *testing.T) {
	portal := newFakePortal()
	portal.historyText = testHistoryText
	client, _ := newTestClient(portal, nil)

	result := client.History(context.Background(), testCredential)
	require.True(t, result.Success, result.Message)
	require.Equal(t, []history.Record{{
		Name:     "ปฐมนิเทศ",
		Type:     "กิจกรรมบังคับ",
		Code:     "6601A-00012",
		Location: "หอประชุม",
		Date:     "12 มิถุนายน 2566",
	}}, result.Compulsory)
	require.Len(t, result.Supplementary, 1)
	require.Equal(t, "บริจาคโลหิต", result.Supplementary[0].Name)
}

func TestHistoryFailure(t *testing.T) {
	portal := newFakePortal()
	portal.navigateErr = errors.New("dns failure")
	client, _ := newTestClient(portal, nil)

	result := client.History(context.Background(), testCredential)
	require.False(t, result.Success)
	require.NotNil(t, result.Compulsory)
	require.NotNil(t, result.Supplementary)
	require.True(t, strings.HasPrefix(result.Message, msgUnreachable), result.Message)
}

func TestHistoryTableMissing(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.HistoryURL = testHistoryURL + "?moved" })

	result := client.History(context.Background(), testCredential)
	require.False(t, result.Success)
	require.True(t, strings.HasPrefix(result.Message, msgHistoryError), result.Message)
}

func TestVerify(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, nil)

	require.True(t, client.Verify(context.Background(), testCredential).OK)

	result := client.Verify(context.Background(), Credential{Username: "a", Password: "b"})
	require.False(t, result.OK)
	require.Equal(t, ReasonInvalidCredentials, result.Reason)
	require.Equal(t, msgInvalidCredentials, result.Message)
	require.Equal(t, 2, portal.acquireCount())
	require.True(t, portal.allClosed())
}

func TestVerifyBrowserUnavailable(t *testing.T) {
	portal := newFakePortal()
	portal.acquireErr = errors.New("no chrome")
	client, _ := newTestClient(portal, nil)

	result := client.Verify(context.Background(), testCredential)
	require.False(t, result.OK)
	require.Equal(t, ReasonBrowser, result.Reason)
}

func TestEveryCallLogsInWithoutSessionReuse(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, nil)
	require.Nil(t, client.Sessions())

	client.ListActivities(context.Background(), testCredential)
	client.ListActivities(context.Background(), testCredential)
	require.Equal(t, 2, portal.loginCount())
}

func TestSessionReuse(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.ReuseSessions = true })

	require.True(t, client.Verify(context.Background(), testCredential).OK)
	require.Equal(t, 1, client.Sessions().Len())

	result := client.ListActivities(context.Background(), testCredential)
	require.True(t, result.Success, result.Message)
	require.Equal(t, 1, portal.loginCount())
}

func TestRestoredSessionIsCheckedOnTargetPage(t *testing.T) {
	portal := newFakePortal()
	portal.historyText = testHistoryText
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.ReuseSessions = true })

	require.True(t, client.Verify(context.Background(), testCredential).OK)
	result := client.History(context.Background(), testCredential)
	require.True(t, result.Success, result.Message)
	require.Equal(t, 1, portal.loginCount())

	require.Len(t, portal.pages, 2)
	require.NotContains(t, portal.pages[1].navigations, testActivityURL)
	require.Equal(t, testHistoryURL, portal.pages[1].navigations[0])
}

func TestSessionReuseFallsBackToLogin(t *testing.T) {
	portal := newFakePortal()
	client, tel := newTestClient(portal, func(cfg *Config) { cfg.ReuseSessions = true })

	require.True(t, client.Verify(context.Background(), testCredential).OK)
	portal.revokeSession = true

	result := client.ListActivities(context.Background(), testCredential)
	require.True(t, result.Success, result.Message)
	require.Equal(t, 2, portal.loginCount())
	require.Contains(t, tel.IDs(telemetry.EventDebug), "portal:"+report_session_stale)
}

func TestFailedLoginForgetsSession(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.ReuseSessions = true })

	require.True(t, client.Verify(context.Background(), testCredential).OK)
	portal.cred.Password = "changed"
	portal.revokeSession = true

	result := client.ListActivities(context.Background(), testCredential)
	require.False(t, result.Success)
	require.Equal(t, 0, client.Sessions().Len())
}

func TestConcurrentOperations(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.MaxBrowsers = 2 })

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.ListActivities(context.Background(), testCredential)
		}(i)
	}
	wg.Wait()

	for _, result := range results {
		require.True(t, result.Success, result.Message)
	}
	require.Equal(t, len(results), portal.acquireCount())
	require.True(t, portal.allClosed())
}

func TestCancelledContextWaitsForNoBrowser(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(portal, func(cfg *Config) { cfg.MaxBrowsers = 1 })

	// hold the only slot
	require.NoError(t, client.browsers.Acquire(context.Background(), 1))
	defer client.browsers.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := client.ListActivities(ctx, testCredential)
	require.False(t, result.Success)
	require.Equal(t, 0, portal.acquireCount())
}
